// File: rtl/tx.go
// License: Apache-2.0
//
// Transmission scheduler: moves admissible requests from the queue into
// the pending set and hands their packets to the transport. Admission
// stops at the first head-eligible candidate that fails the predicate,
// which preserves FIFO order and gives flush requests their barrier
// semantics for free.

package rtl

import (
	"errors"

	"github.com/embedlink/eclink/api"
)

// internal scheduler outcomes, never surfaced to clients
var (
	errNoRequest = errors.New("rtl: no queued request")
	errRetry     = errors.New("rtl: transient submission failure")
)

// txCanProcess is the admission predicate.
func (l *Layer) txCanProcess(r *Request) bool {
	if r.testBit(tyFlush) {
		return l.pending.count.Load() == 0
	}
	return l.pending.count.Load() < uint32(l.cfg.MaxPending)
}

// txNext removes the first admissible request from the queue and marks
// it transmitting. The queue's reference transfers to the caller.
func (l *Layer) txNext() (*Request, error) {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()

	for e := l.queue.list.Front(); e != nil; e = e.Next() {
		r := e.Value.(*Request)
		if r.testBit(stLocked) {
			continue
		}
		if !l.txCanProcess(r) {
			return nil, api.ErrBusy
		}

		r.setBits(stTransmitting)
		r.clearBit(stQueued)
		l.queue.list.Remove(e)
		r.node = nil
		return r, nil
	}
	return nil, errNoRequest
}

func (l *Layer) txProcessOne() error {
	r, err := l.txNext()
	if err != nil {
		return err
	}

	if err := l.pendingPush(r); err != nil {
		// locked by a concurrent cancellation; drop this attempt
		r.put()
		return errRetry
	}

	err = l.tp.Submit(&r.packet)
	switch {
	case errors.Is(err, api.ErrShutdown):
		// Refused by a transport that is shutting down: the packet
		// callback will never run, so complete here. We are the only
		// path allowed to do so, as the request is marked
		// transmitting.
		r.setBits(stLocked)
		l.pendingRemove(r)
		if !r.testAndSetBit(stCompleted) {
			r.completeWithStatus(api.ErrShutdown)
		}
		r.put()
		return api.ErrShutdown

	case err != nil:
		// The packet was locked by a concurrent cancellation (double
		// submission is ruled out by the layer-binding guard).
		// Cancellation removes it from the pending set; just drop the
		// reference.
		if !errors.Is(err, api.ErrLocked) {
			l.log.Warn().Err(err).Msg("rtl: tx: unexpected submission failure")
		}
		r.put()
		return errRetry
	}

	r.put()
	return nil
}

// txSchedule wakes the scheduler if there might be admissible work.
func (l *Layer) txSchedule() bool {
	if l.pending.count.Load() >= uint32(l.cfg.MaxPending) {
		return false
	}
	if l.queueEmpty() {
		return false
	}
	return l.tx.Schedule()
}

// txWork is the scheduler body: a bounded batch per wake to stay fair
// on the shared executor, rescheduling itself when work remains.
func (l *Layer) txWork() {
	for i := 0; i < l.cfg.TxBatch; i++ {
		err := l.txProcessOne()
		if errors.Is(err, errNoRequest) || errors.Is(err, api.ErrBusy) {
			return
		}
		if errors.Is(err, api.ErrShutdown) {
			// the party initiating the shutdown drains the rest
			return
		}
	}
	l.txSchedule()
}
