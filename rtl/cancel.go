// File: rtl/cancel.go
// License: Apache-2.0
//
// Race-tolerant cancellation. Cancellation never assumes which path
// currently holds the request: it checks submission state, queue and
// pending set in turn, and the Locked/Completed bits guarantee that at
// most one path finalizes the request.

package rtl

import "github.com/embedlink/eclink/api"

// Cancel terminates the request early. The pending hint selects the
// strategy: false tries the unsubmitted/queued paths and reports false
// if the request has already progressed to the pending set (retry with
// pending=true); true revokes the underlying packet. Idempotent: once a
// request has been canceled, further calls return true without effect.
func (r *Request) Cancel(pending bool) bool {
	if r.testAndSetBit(stCanceled) {
		return true
	}

	// guard reference: release must not fire before the cancellation
	// completion has run, even if the list references dropped on the
	// way are the last counted owners
	r.get()
	defer r.put()

	var canceled bool
	if pending {
		canceled = r.cancelPending()
	} else {
		canceled = r.cancelNonpending()
	}

	if !canceled {
		// nothing was finalized; allow the documented retry with the
		// pending strategy to take the marker again
		r.clearBit(stCanceled)
		return false
	}

	if l := r.layer.Load(); l != nil {
		l.metrics.IncCanceled()
		l.txSchedule()
	}
	return true
}

// cancelNonpending handles requests believed not to be pending yet.
func (r *Request) cancelNonpending() bool {
	// Try to lock the request from its pristine state, which at this
	// point carries the type bits plus the cancellation marker set
	// above. If that works and no layer has been bound, no submission
	// can add it anywhere any more (submit checks Locked after
	// binding), so complete it directly.
	fixed := r.state.Load() & (tyMask | stCanceled)
	if r.state.CompareAndSwap(fixed, fixed|stLocked) && r.layer.Load() == nil {
		if r.testAndSetBit(stCompleted) {
			return true
		}
		r.completeWithStatus(api.ErrCanceled)
		return true
	}

	l := r.layer.Load()
	if l == nil {
		return false
	}

	// Requests cannot be resubmitted, and a queued request cannot be
	// transmitting or pending yet. Removing it from the queue therefore
	// removes its last occurrence in the system.
	l.queue.mu.Lock()
	if !r.testAndClearBit(stQueued) {
		// became pending concurrently; the caller must retry with the
		// pending strategy
		l.queue.mu.Unlock()
		return false
	}
	r.setBits(stLocked)
	l.queue.list.Remove(r.node)
	r.node = nil
	l.queue.mu.Unlock()

	r.put() // queue's reference

	if r.testAndSetBit(stCompleted) {
		return true
	}
	r.completeWithStatus(api.ErrCanceled)
	return true
}

// cancelPending handles requests that may already be with the transport.
func (r *Request) cancelPending() bool {
	// already locked: some other path is finalizing it right now
	if r.testAndSetBit(stLocked) {
		return true
	}

	l := r.layer.Load()
	if l == nil {
		// locked before any submission could bind the layer; nothing
		// can add the request anywhere any more
		if r.testAndSetBit(stCompleted) {
			return true
		}
		r.completeWithStatus(api.ErrCanceled)
		return true
	}

	// Revoke the packet. If it has not completed yet this synchronously
	// runs its completion callback, which converges into the standard
	// completion path.
	l.tp.Cancel(&r.packet)

	// The packet may have completed successfully before the
	// cancellation took hold, leaving the request waiting for a
	// response. Finish the job here if so.
	if r.testAndSetBit(stCompleted) {
		return true
	}

	l.queueRemove(r)
	l.pendingRemove(r)
	r.completeWithStatus(api.ErrCanceled)
	return true
}
