// File: rtl/queue.go
// License: Apache-2.0
//
// Submission queue and pending set management. Membership is tracked by
// the Queued/Pending state bits; the bit and the list are only ever
// changed together under the owning lock, so removal is idempotent.

package rtl

import "github.com/embedlink/eclink/api"

// queueRemove unlinks the request from the submission queue if it is
// still a member, dropping the queue's reference.
func (l *Layer) queueRemove(r *Request) {
	l.queue.mu.Lock()
	remove := r.testAndClearBit(stQueued)
	if remove {
		l.queue.list.Remove(r.node)
		r.node = nil
	}
	l.queue.mu.Unlock()

	if remove {
		r.put()
	}
}

func (l *Layer) queueEmpty() bool {
	l.queue.mu.Lock()
	empty := l.queue.list.Len() == 0
	l.queue.mu.Unlock()
	return empty
}

// pendingPush adds the request to the pending set. Refused for locked
// requests and for requests that are already pending.
func (l *Layer) pendingPush(r *Request) error {
	l.pending.mu.Lock()

	if r.testBit(stLocked) {
		l.pending.mu.Unlock()
		return api.ErrInvalidState
	}
	if r.testAndSetBit(stPending) {
		l.pending.mu.Unlock()
		return api.ErrAlreadySubmitted
	}

	l.pending.count.Add(1)
	r.node = l.pending.list.PushBack(r.get())

	l.pending.mu.Unlock()
	return nil
}

// pendingRemove unlinks the request from the pending set if it is still
// a member, dropping the pending set's reference.
func (l *Layer) pendingRemove(r *Request) {
	l.pending.mu.Lock()
	remove := r.testAndClearBit(stPending)
	if remove {
		l.pending.count.Add(^uint32(0))
		l.pending.list.Remove(r.node)
		r.node = nil
	}
	l.pending.mu.Unlock()

	if remove {
		r.put()
	}
}
