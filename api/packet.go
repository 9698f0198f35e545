// File: api/packet.go
// License: Apache-2.0
//
// Transport-level packet handed down by the request layer. The packet
// carries its own tiny state word so that every transport implementation
// shares the same exactly-once completion and cancellation arbitration.

package api

import "code.hybscloud.com/atomix"

const (
	pktSubmitted uint32 = 1 << 0
	pktLocked    uint32 = 1 << 1
	pktDone      uint32 = 1 << 2
)

// Packet is the unit of transmission exchanged with a Transport.
//
// The embedded state word guards three invariants independent of the
// transport implementation: a packet is submitted at most once, a locked
// packet is never (re)submitted, and Done fires at most once.
type Packet struct {
	// Payload is the encoded command frame. Empty for flush packets.
	Payload []byte

	// Sequenced marks packets that participate in the transport's
	// sequence-number/ack protocol.
	Sequenced bool

	// Flush marks a barrier packet carrying no payload.
	Flush bool

	// Done is invoked exactly once when the packet reaches a terminal
	// transport state: nil after the acknowledgment (or successful
	// transmission for unsequenced packets), non-nil on cancellation,
	// shutdown or transmission failure.
	Done func(status error)

	state atomix.Uint32
}

// Acquire marks the packet as submitted. Transports call this first in
// Submit; ErrLocked or ErrAlreadySubmitted mirror the refusal reasons of
// the downward contract.
func (p *Packet) Acquire() error {
	for {
		s := p.state.Load()
		if s&pktLocked != 0 {
			return ErrLocked
		}
		if s&pktSubmitted != 0 {
			return ErrAlreadySubmitted
		}
		if p.state.CompareAndSwap(s, s|pktSubmitted) {
			return nil
		}
	}
}

// Lock forbids any future submission of the packet. Set by cancellation.
func (p *Packet) Lock() {
	p.state.Or(pktLocked)
}

// Finish delivers the packet completion callback. Only the first call
// has an effect; it reports whether this call was the one that fired.
func (p *Packet) Finish(status error) bool {
	if p.state.Or(pktDone)&pktDone != 0 {
		return false
	}
	if p.Done != nil {
		p.Done(status)
	}
	return true
}

// Finished reports whether the completion callback has already fired.
func (p *Packet) Finished() bool {
	return p.state.Load()&pktDone != 0
}
