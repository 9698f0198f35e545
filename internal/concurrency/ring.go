// File: internal/concurrency/ring.go
// License: Apache-2.0
//
// Bounded ring buffer backing the executor's per-worker queues.

package concurrency

import "sync"

// ring is a bounded FIFO with capacity rounded up to a power of two.
// Guarded by a mutex: tasks are enqueued from arbitrary submitter
// goroutines and drained by the owning worker.
type ring[T any] struct {
	mu      sync.Mutex
	mask    uint64
	entries []T
	head    uint64
	tail    uint64
}

func newRing[T any](capacity int) *ring[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &ring[T]{mask: uint64(size - 1), entries: make([]T, size)}
}

// enqueue adds val; returns false if full.
func (q *ring[T]) enqueue(val T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail-q.head >= uint64(len(q.entries)) {
		return false
	}
	q.entries[q.tail&q.mask] = val
	q.tail++
	return true
}

// dequeue removes and returns an item; ok is false if empty.
func (q *ring[T]) dequeue() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= q.tail {
		return item, false
	}
	item = q.entries[q.head&q.mask]
	var zero T
	q.entries[q.head&q.mask] = zero
	q.head++
	return item, true
}

func (q *ring[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}
