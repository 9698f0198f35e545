// File: rtl/request.go
// License: Apache-2.0
//
// Request entity and its atomic bit-flag state word. The state word is
// the arbitration mechanism between the concurrent completion paths:
// the Locked and Completed bits are only ever set via atomic
// test-and-set, so exactly one path wins the right to complete a
// request.

package rtl

import (
	"container/list"
	"math"

	"code.hybscloud.com/atomix"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/protocol"
)

// Type bits: immutable after construction.
const (
	tyHasResponse uint32 = 1 << 0
	tySequenced   uint32 = 1 << 1
	tyFlush       uint32 = 1 << 2
	tyMask        uint32 = tyHasResponse | tySequenced | tyFlush
)

// Lifecycle bits.
const (
	stQueued       uint32 = 1 << 8
	stTransmitting uint32 = 1 << 9
	stTransmitted  uint32 = 1 << 10
	stPending      uint32 = 1 << 11
	stLocked       uint32 = 1 << 12
	stRspRcvd      uint32 = 1 << 13
	stCanceled     uint32 = 1 << 14
	stCompleted    uint32 = 1 << 15
)

// noTimestamp marks a request that has not been transmitted yet.
const noTimestamp int64 = math.MaxInt64

// RequestFlags configure a request at construction.
type RequestFlags uint32

const (
	// Unsequenced excludes the packet from the transport's
	// sequence-number/ack protocol.
	Unsequenced RequestFlags = 1 << iota

	// HasResponse marks a request that stays pending after its
	// acknowledgment until a response frame arrives. Such requests
	// must be sequenced.
	HasResponse

	// Flush marks a barrier request: it is admitted only once the
	// pending set is empty, and nothing behind it is admitted before
	// it completes.
	Flush
)

// RequestOps are the client-supplied callbacks of a request.
type RequestOps struct {
	// Complete delivers the terminal outcome. For a successful
	// response-carrying completion cmd and data hold the decoded
	// response; otherwise they are nil and status carries the terminal
	// error (nil for plain success). Runs exactly once per request.
	Complete func(r *Request, cmd *protocol.Command, data []byte, status error)

	// Release is invoked after the last owner dropped the request,
	// strictly after Complete has run.
	Release func(r *Request)
}

// Request is the unit of work tracked by the layer. Requests are
// single-use: once submitted they can never be resubmitted.
type Request struct {
	state  atomix.Uint32
	refs   atomix.Int32
	tstamp atomix.Int64
	layer  atomix.Pointer[Layer]

	packet api.Packet
	ops    RequestOps

	// node is the request's membership in the queue or pending list,
	// guarded by the owning list's lock.
	node *list.Element
}

// NewRequest builds a request around an encoded command payload. The
// caller holds the initial reference; Release fires once every owner
// (caller, queue, pending set, transport) has dropped theirs.
func NewRequest(payload []byte, flags RequestFlags, ops RequestOps) *Request {
	r := &Request{ops: ops}

	st := uint32(0)
	if flags&HasResponse != 0 {
		st |= tyHasResponse
	}
	if flags&Unsequenced == 0 {
		st |= tySequenced
		r.packet.Sequenced = true
	}
	if flags&Flush != 0 {
		st |= tyFlush
		r.packet.Flush = true
	}
	r.state.Store(st)
	r.tstamp.Store(noTimestamp)
	r.refs.Store(1)

	r.packet.Payload = payload
	r.packet.Done = r.packetDone
	return r
}

// get acquires an additional reference.
func (r *Request) get() *Request {
	r.refs.Add(1)
	return r
}

// put drops a reference; the last one fires Release.
func (r *Request) put() {
	if r.refs.Add(-1) == 0 && r.ops.Release != nil {
		r.ops.Release(r)
	}
}

// Put drops the caller's reference obtained from NewRequest.
func (r *Request) Put() {
	r.put()
}

func (r *Request) testBit(bit uint32) bool {
	return r.state.Load()&bit != 0
}

func (r *Request) setBits(bits uint32) {
	r.state.Or(bits)
}

func (r *Request) clearBit(bit uint32) {
	r.state.And(^bit)
}

// testAndSetBit sets bit and reports whether it was already set.
func (r *Request) testAndSetBit(bit uint32) bool {
	return r.state.Or(bit)&bit != 0
}

// testAndClearBit clears bit and reports whether it was set.
func (r *Request) testAndClearBit(bit uint32) bool {
	return r.state.And(^bit)&bit != 0
}

// requestID reads the assigned id out of the encoded payload. ok is
// false for payload-less packets (flush requests).
func (r *Request) requestID() (uint16, bool) {
	if len(r.packet.Payload) < protocol.HeaderLen {
		return 0, false
	}
	return protocol.RequestID(r.packet.Payload), true
}

// expiration returns the absolute deadline in unix nanos, or
// noTimestamp if the request has not been transmitted.
func (r *Request) expiration(timeout int64) int64 {
	ts := r.tstamp.Load()
	if ts == noTimestamp {
		return noTimestamp
	}
	return ts + timeout
}

// completeWithStatus delivers a status-only completion. Tolerates an
// unbound layer: cancellation may complete a request that was never
// submitted.
func (r *Request) completeWithStatus(status error) {
	if l := r.layer.Load(); l != nil {
		l.noteCompletion(r, status)
	}
	r.ops.Complete(r, nil, nil, status)
}

// completeWithResponse delivers a successful response completion.
func (r *Request) completeWithResponse(cmd *protocol.Command, data []byte) {
	if l := r.layer.Load(); l != nil {
		l.noteCompletion(r, nil)
	}
	r.ops.Complete(r, cmd, data, nil)
}

// packetDone is the transport's completion callback for the request's
// packet; it fires exactly once per accepted packet.
func (r *Request) packetDone(status error) {
	l := r.layer.Load()
	if l == nil {
		return
	}

	// Hold the transport's reference for the duration of the callback.
	// List references dropped below must not be the last ones: release
	// fires strictly after the completion has run.
	r.get()
	defer r.put()

	if status != nil {
		r.setBits(stLocked)
		if r.testAndSetBit(stCompleted) {
			return
		}
		// The packet may have been canceled before it was ever
		// submitted; the request can still sit in the queue.
		l.queueRemove(r)
		l.pendingRemove(r)
		r.completeWithStatus(status)
		l.txSchedule()
		return
	}

	r.setBits(stTransmitted)
	r.clearBit(stTransmitting)

	// a response-expecting request stays pending with a deadline
	if r.testBit(tyHasResponse) {
		l.timeoutStart(r)
		return
	}

	r.setBits(stLocked)
	if r.testAndSetBit(stCompleted) {
		return
	}
	l.pendingRemove(r)
	r.completeWithStatus(nil)
	l.txSchedule()
}
