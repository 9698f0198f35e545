// File: rtl/rx.go
// License: Apache-2.0
//
// Completion demultiplexer: routes inbound frames to the matching
// pending request, or to the event handler for ids in the reserved
// event range. Runs on the transport's receive context.

package rtl

import (
	"container/list"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/protocol"
)

// HandleFrame implements api.FrameSink.
func (l *Layer) HandleFrame(data []byte) {
	if len(data) == 0 {
		l.metrics.IncDroppedFrame()
		l.log.Warn().Msg("rtl: rx: empty frame")
		return
	}

	switch data[0] {
	case protocol.PayloadTypeCommand:
		l.rxCommand(data)
	default:
		l.metrics.IncDroppedFrame()
		l.log.Error().
			Uint8("type", data[0]).
			Msg("rtl: rx: unknown frame payload type")
	}
}

func (l *Layer) rxCommand(data []byte) {
	cmd, cmdData, err := protocol.ParseCommand(data)
	if err != nil {
		l.metrics.IncDroppedFrame()
		l.log.Warn().Err(err).Msg("rtl: rx: malformed command frame")
		return
	}

	if protocol.IsEventID(cmd.RequestID) {
		l.rxEvent(cmd, cmdData)
		return
	}
	l.complete(cmd, cmdData)
}

func (l *Layer) rxEvent(cmd *protocol.Command, data []byte) {
	l.metrics.IncEvent()
	l.log.Debug().Uint16("rqid", cmd.RequestID).Msg("rtl: handling event")

	if l.ops.HandleEvent != nil {
		l.ops.HandleEvent(cmd, data)
	}
}

// complete routes a response frame to its pending request.
func (l *Layer) complete(cmd *protocol.Command, cmdData []byte) {
	var r *Request

	l.pending.mu.Lock()
	var next *list.Element
	for e := l.pending.list.Front(); e != nil; e = next {
		next = e.Next()
		p := e.Value.(*Request)

		id, ok := p.requestID()
		if !ok || id != cmd.RequestID {
			continue
		}

		// mark as response-received and locked: we are going to
		// complete it
		p.setBits(stLocked | stRspRcvd)
		p.clearBit(stPending)

		l.pending.count.Add(^uint32(0))
		l.pending.list.Remove(e)
		p.node = nil

		r = p
		break
	}
	l.pending.mu.Unlock()

	if r == nil {
		l.metrics.IncDroppedFrame()
		l.log.Warn().
			Uint16("rqid", cmd.RequestID).
			Msg("rtl: dropping unexpected command message")
		return
	}

	if r.testAndSetBit(stCompleted) {
		// lost the race against cancellation or timeout
		r.put()
		l.txSchedule()
		return
	}

	// The ack of a sequenced packet runs on this same receive context
	// before its response can arrive, so Transmitted must be visible
	// here. A response before its own ack is a protocol violation;
	// surface it instead of accepting the response.
	if !r.testBit(stTransmitted) {
		l.metrics.IncProtocolError()
		l.log.Error().
			Uint16("rqid", cmd.RequestID).
			Msg("rtl: received response before ack for request")

		// the packet may still be queued, since the response is bogus
		l.queueRemove(r)
		r.completeWithStatus(api.ErrRemoteProtocol)
		r.put()
		l.txSchedule()
		return
	}

	r.completeWithResponse(cmd, cmdData)
	r.put()
	l.txSchedule()
}
