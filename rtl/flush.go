// File: rtl/flush.go
// License: Apache-2.0
//
// Flush barrier: a payload-less flush-typed request that is admitted
// only once the pending set has drained, and that blocks admission of
// everything queued behind it until it completes.

package rtl

import (
	"errors"
	"time"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/protocol"
)

type flushRequest struct {
	r      *Request
	done   chan struct{}
	status error
}

// Flush blocks until every request submitted before the call has
// completed, or until the timeout elapses. On timeout the internal
// flush request is canceled and ErrTimeout returned. Requests submitted
// after Flush queue up behind the barrier and proceed once it
// completes. Only the calling goroutine blocks.
func (l *Layer) Flush(timeout time.Duration) error {
	fr := &flushRequest{done: make(chan struct{})}
	fr.r = NewRequest(nil, Unsequenced|Flush, RequestOps{
		Complete: func(_ *Request, _ *protocol.Command, _ []byte, status error) {
			fr.status = status
		},
		// release runs strictly after completion, once the layer has
		// dropped every reference
		Release: func(_ *Request) {
			close(fr.done)
		},
	})

	if err := l.Submit(fr.r); err != nil {
		return err
	}
	fr.r.put()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-fr.done:
	case <-timer.C:
		fr.r.Cancel(true)
		<-fr.done
	}

	if errors.Is(fr.status, api.ErrCanceled) {
		return api.ErrTimeout
	}
	return fr.status
}
