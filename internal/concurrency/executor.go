// File: internal/concurrency/executor.go
// License: Apache-2.0
//
// Executor dispatches deferred closures across a small pool of worker
// goroutines, using bounded per-worker rings and a global queue
// fallback.

package concurrency

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("eclink: executor is closed")

// Executor manages a pool of worker goroutines.
type Executor struct {
	globalQueue chan TaskFunc
	localQueues []*ring[TaskFunc]
	workers     []*worker
	closeCh     chan struct{}
	closed      atomic.Bool
	rr          atomic.Uint64
	wg          sync.WaitGroup
}

// NewExecutor creates an Executor with the given number of workers.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		globalQueue: make(chan TaskFunc, numWorkers*4),
		closeCh:     make(chan struct{}),
	}
	e.localQueues = make([]*ring[TaskFunc], numWorkers)
	e.workers = make([]*worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		e.localQueues[i] = newRing[TaskFunc](1024)
	}
	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:         i,
			executor:   e,
			localQueue: e.localQueues[i],
		}
		e.workers[i] = w
		e.wg.Add(1)
		go w.run()
	}
	return e
}

// Submit enqueues a task for execution.
func (e *Executor) Submit(task TaskFunc) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	idx := int(e.rr.Add(1) % uint64(len(e.workers)))
	if e.localQueues[idx].enqueue(task) {
		return nil
	}
	// local ring full, fall back to the global queue
	select {
	case e.globalQueue <- task:
		return nil
	case <-e.closeCh:
		return ErrExecutorClosed
	default:
		return ErrExecutorClosed
	}
}

// NumWorkers returns the number of worker goroutines.
func (e *Executor) NumWorkers() int {
	return len(e.workers)
}

// Close shuts down the executor and waits for workers to exit. Tasks
// already enqueued may be dropped.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
		e.wg.Wait()
	}
}

// worker is a single executor goroutine.
type worker struct {
	id         int
	executor   *Executor
	localQueue *ring[TaskFunc]
}

func (w *worker) run() {
	defer w.executor.wg.Done()
	for {
		if task, ok := w.localQueue.dequeue(); ok {
			w.executeTask(task)
			continue
		}
		select {
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
		case <-w.executor.closeCh:
			return
		case <-time.After(time.Millisecond):
			// re-check the local ring
		}
	}
}

func (w *worker) executeTask(task TaskFunc) {
	task()
}
