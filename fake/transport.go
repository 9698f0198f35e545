// File: fake/transport.go
// License: Apache-2.0
//
// Fake transport for testing. Provides predictable, controllable
// behavior for the api.Transport contract: scripted acknowledgments,
// programmable responses, suppressed responses and submit failures.

package fake

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/protocol"
)

// Responder produces the frames the fake device sends back for a
// submitted command. Returning nil suppresses the response.
type Responder func(cmd *protocol.Command, data []byte) [][]byte

// EchoResponder responds to every command with an identical command
// frame carrying the request's own id and data.
func EchoResponder(cmd *protocol.Command, data []byte) [][]byte {
	return [][]byte{cmd.Encode(data)}
}

// Transport is a fake implementation of api.Transport.
//
// By default every accepted packet is acknowledged synchronously inside
// Submit and, if a Responder is set, its frames are delivered to the
// bound sink right after the acknowledgment. With AutoAck disabled,
// packets pile up until AckNext or FailNext is called, which lets tests
// hold requests in the pending state deliberately.
type Transport struct {
	mu        sync.Mutex
	sink      api.FrameSink
	inflight  *queue.Queue // *api.Packet awaiting manual ack
	submitted []*api.Packet
	closed    bool
	started   bool

	autoAck     bool
	responder   Responder
	submitError error
}

// NewTransport creates a fake transport with synchronous acks.
func NewTransport() *Transport {
	return &Transport{
		inflight: queue.New(),
		autoAck:  true,
	}
}

// SetResponder configures the device behavior for command packets.
func (t *Transport) SetResponder(r Responder) {
	t.mu.Lock()
	t.responder = r
	t.mu.Unlock()
}

// SetAutoAck toggles synchronous acknowledgment of submitted packets.
func (t *Transport) SetAutoAck(on bool) {
	t.mu.Lock()
	t.autoAck = on
	t.mu.Unlock()
}

// SetSubmitError scripts the next Submit calls to fail with err.
func (t *Transport) SetSubmitError(err error) {
	t.mu.Lock()
	t.submitError = err
	t.mu.Unlock()
}

// Bind implements api.Transport.
func (t *Transport) Bind(sink api.FrameSink) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

// Start implements api.Transport.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return api.ErrShutdown
	}
	t.started = true
	return nil
}

// Submit implements api.Transport.
func (t *Transport) Submit(p *api.Packet) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return api.ErrShutdown
	}
	if t.submitError != nil {
		err := t.submitError
		t.mu.Unlock()
		return err
	}
	if err := p.Acquire(); err != nil {
		t.mu.Unlock()
		return err
	}
	t.submitted = append(t.submitted, p)
	autoAck := t.autoAck
	if !autoAck {
		t.inflight.Add(p)
	}
	t.mu.Unlock()

	if autoAck {
		t.ackPacket(p)
	}
	return nil
}

// Cancel implements api.Transport: locks the packet and synchronously
// fires its completion callback if it has not completed yet.
func (t *Transport) Cancel(p *api.Packet) {
	p.Lock()
	p.Finish(api.ErrCanceled)
}

// Shutdown implements api.Transport: every accepted packet that has not
// finished yet completes with ErrShutdown.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	t.closed = true
	pkts := make([]*api.Packet, len(t.submitted))
	copy(pkts, t.submitted)
	t.mu.Unlock()

	for _, p := range pkts {
		p.Finish(api.ErrShutdown)
	}
}

// AckNext acknowledges the oldest unacknowledged packet. Returns false
// if none is in flight. Only meaningful with AutoAck disabled.
func (t *Transport) AckNext() bool {
	t.mu.Lock()
	if t.inflight.Length() == 0 {
		t.mu.Unlock()
		return false
	}
	p := t.inflight.Remove().(*api.Packet)
	t.mu.Unlock()

	t.ackPacket(p)
	return true
}

// FailNext completes the oldest unacknowledged packet with err instead
// of acknowledging it.
func (t *Transport) FailNext(err error) bool {
	t.mu.Lock()
	if t.inflight.Length() == 0 {
		t.mu.Unlock()
		return false
	}
	p := t.inflight.Remove().(*api.Packet)
	t.mu.Unlock()

	p.Finish(err)
	return true
}

// Inflight returns the number of packets awaiting a manual ack.
func (t *Transport) Inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight.Length()
}

// SubmitCount returns the number of packets accepted so far.
func (t *Transport) SubmitCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.submitted)
}

// Deliver injects a raw frame into the bound sink, as if it had arrived
// from the device. Used to produce events and stray responses.
func (t *Transport) Deliver(frame []byte) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.HandleFrame(frame)
	}
}

// ackPacket finishes the packet successfully and, for command packets,
// runs the responder.
func (t *Transport) ackPacket(p *api.Packet) {
	if !p.Finish(nil) {
		// canceled concurrently; the response would be stray
		return
	}
	if p.Flush || len(p.Payload) == 0 {
		return
	}

	t.mu.Lock()
	responder := t.responder
	sink := t.sink
	t.mu.Unlock()
	if responder == nil || sink == nil {
		return
	}

	cmd, data, err := protocol.ParseCommand(p.Payload)
	if err != nil {
		return
	}
	for _, frame := range responder(cmd, data) {
		sink.HandleFrame(frame)
	}
}
