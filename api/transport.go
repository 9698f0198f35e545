// File: api/transport.go
// License: Apache-2.0
//
// Downward transport contract consumed by the request layer. The
// transport owns framing, per-packet acknowledgment and retransmission;
// the request layer only sees packet completion callbacks and inbound
// frames.

package api

// FrameSink consumes frames arriving from the transport. The request
// layer implements it to demultiplex responses and events.
type FrameSink interface {
	// HandleFrame is invoked on the transport's receive context
	// whenever a complete frame payload arrives.
	HandleFrame(data []byte)
}

// Transport is the packet-level layer beneath the request layer.
type Transport interface {
	// Bind registers the sink receiving inbound frames. Must be called
	// before Start.
	Bind(sink FrameSink)

	// Start brings up the transport's transmit/receive machinery.
	Start() error

	// Shutdown stops the transport. All packets submitted but not yet
	// finished are completed with ErrShutdown before Shutdown returns.
	Shutdown()

	// Submit hands a packet to the transport. Refusals: ErrShutdown if
	// the transport is stopped, ErrAlreadySubmitted if the packet was
	// submitted before, ErrLocked if it has been locked by a
	// cancellation. The packet's Done callback fires exactly once per
	// accepted packet.
	Submit(p *Packet) error

	// Cancel revokes a packet. If the packet has not completed yet its
	// Done callback is invoked synchronously with ErrCanceled.
	Cancel(p *Packet)
}
