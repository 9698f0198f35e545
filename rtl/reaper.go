// File: rtl/reaper.go
// License: Apache-2.0
//
// Timeout reaper: a single delayed task that sweeps the pending set for
// expired requests. The scheduled deadline only ever shrinks; a
// coalescing window keeps near-identical deadlines from causing
// rescheduling storms.

package rtl

import (
	"container/list"
	"math"
	"time"

	"github.com/eapache/queue"

	"github.com/embedlink/eclink/api"
)

// timeoutReaperMod proposes a new wake deadline. The stored deadline is
// only replaced by an earlier one; proposals within the coalescing
// window of the current deadline are absorbed.
func (l *Layer) timeoutReaperMod(nowN, expires int64) {
	aexp := expires + l.rtx.resolution

	old := l.rtx.expires.Load()
	for aexp < old {
		if l.rtx.expires.CompareAndSwap(old, expires) {
			l.rtx.reaper.ModDelayed(time.Duration(expires - nowN))
			return
		}
		old = l.rtx.expires.Load()
	}
}

// timeoutStart arms the deadline of a freshly acknowledged request.
func (l *Layer) timeoutStart(r *Request) {
	if r.testBit(stLocked) {
		return
	}

	ts := now()
	r.tstamp.Store(ts)
	l.timeoutReaperMod(ts, ts+l.rtx.timeout)
}

// reap sweeps the pending set once, completing expired requests with
// ErrTimeout outside the lock, and re-arms itself for the earliest
// remaining deadline.
func (l *Layer) reap() {
	nowN := now()
	next := int64(math.MaxInt64)

	// Mark the reaper as not scheduled before inspecting any request,
	// so a concurrent timeoutStart cannot be lost against this sweep.
	l.rtx.expires.Store(math.MaxInt64)

	claimed := queue.New()

	l.pending.mu.Lock()
	var nextE *list.Element
	for e := l.pending.list.Front(); e != nil; e = nextE {
		nextE = e.Next()
		r := e.Value.(*Request)

		expires := r.expiration(l.rtx.timeout)
		if expires > nowN {
			if expires < next {
				next = expires
			}
			continue
		}

		// avoid further transitions if another path owns it
		if r.testAndSetBit(stLocked) {
			continue
		}

		r.clearBit(stPending)
		l.pending.count.Add(^uint32(0))
		l.pending.list.Remove(e)
		r.node = nil

		claimed.Add(r)
	}
	l.pending.mu.Unlock()

	// complete the claimed requests with the list lock released
	for claimed.Length() > 0 {
		r := claimed.Remove().(*Request)
		if !r.testAndSetBit(stCompleted) {
			l.metrics.IncTimeout()
			r.completeWithStatus(api.ErrTimeout)
		}
		r.put()
	}

	// keep the reaper from running again immediately
	if min := nowN + l.rtx.resolution; next < min {
		next = min
	}
	if next != math.MaxInt64 {
		l.timeoutReaperMod(nowN, next)
	}

	l.txSchedule()
}
