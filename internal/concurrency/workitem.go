// File: internal/concurrency/workitem.go
// License: Apache-2.0
//
// Coalescing deferred tasks on top of the executor. A WorkItem runs at
// most one instance of its function at a time; scheduling while already
// scheduled coalesces, scheduling while running queues one re-run. A
// DelayedItem adds a single outstanding timer in front of a WorkItem.

package concurrency

import (
	"sync"
	"time"
)

// WorkItem is a single-flight deferred task.
type WorkItem struct {
	exec *Executor
	fn   func()

	mu        sync.Mutex
	cond      *sync.Cond
	scheduled bool
	running   bool
	rerun     bool
	stopped   bool
}

// NewWorkItem binds fn to the executor. fn must not block indefinitely.
func NewWorkItem(e *Executor, fn func()) *WorkItem {
	w := &WorkItem{exec: e, fn: fn}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Schedule queues the item for execution. Returns true if this call
// caused a (re-)run to be queued, false if the item was already
// scheduled, is stopped, or the executor refused the task.
func (w *WorkItem) Schedule() bool {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return false
	}
	if w.running {
		// the active run picks this up before finishing
		w.rerun = true
		w.mu.Unlock()
		return true
	}
	if w.scheduled {
		w.mu.Unlock()
		return false
	}
	w.scheduled = true
	w.mu.Unlock()

	if err := w.exec.Submit(w.run); err != nil {
		w.mu.Lock()
		w.scheduled = false
		w.cond.Broadcast()
		w.mu.Unlock()
		return false
	}
	return true
}

func (w *WorkItem) run() {
	w.mu.Lock()
	w.scheduled = false
	if w.stopped || w.running {
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	for {
		w.fn()

		w.mu.Lock()
		if w.rerun && !w.stopped {
			w.rerun = false
			w.mu.Unlock()
			continue
		}
		w.running = false
		w.rerun = false
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}
}

// CancelSync forbids future scheduling and waits until any queued or
// running invocation has drained.
func (w *WorkItem) CancelSync() {
	w.mu.Lock()
	w.stopped = true
	for w.scheduled || w.running {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

// DelayedItem runs a WorkItem after a delay, with a single outstanding
// timer. Re-arming replaces the previous deadline.
type DelayedItem struct {
	w *WorkItem

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDelayedItem binds fn to the executor behind a timer.
func NewDelayedItem(e *Executor, fn func()) *DelayedItem {
	return &DelayedItem{w: NewWorkItem(e, fn)}
}

// ModDelayed (re-)arms the timer to fire after delay, replacing any
// previously armed deadline.
func (d *DelayedItem) ModDelayed(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if delay < 0 {
		delay = 0
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(delay, func() { d.w.Schedule() })
		return
	}
	d.timer.Reset(delay)
}

// CancelSync stops the timer, forbids future runs and waits for any
// in-flight invocation.
func (d *DelayedItem) CancelSync() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.w.CancelSync()
}
