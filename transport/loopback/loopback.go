// File: transport/loopback/loopback.go
// License: Apache-2.0
//
// In-memory transport with a programmable device emulator. Submitted
// command packets are acknowledged immediately; the device's reply
// frames travel through a bounded SPSC ring to a dedicated receive
// goroutine, which hands them to the bound sink the way a real line
// receiver would.

package loopback

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/protocol"
)

// ringCapacity bounds the frames buffered between the device emulator
// and the receive loop.
const ringCapacity = 64

// Device produces the reply frames for a command the emulated device
// received. Returning nil means the device stays silent.
type Device func(cmd *protocol.Command, data []byte) [][]byte

// Echo replies to every command with an identical frame.
func Echo(cmd *protocol.Command, data []byte) [][]byte {
	return [][]byte{cmd.Encode(data)}
}

// Transport is an in-memory api.Transport.
type Transport struct {
	dev  Device
	sink api.FrameSink

	// Single-consumer ring; the produce side is serialized by txMu
	// (packet submissions are single-flight, but PostEvent may run on
	// any goroutine).
	frames lfq.SPSC[[]byte]
	txMu   sync.Mutex

	closed  atomix.Uint32
	started atomix.Uint32
	wg      sync.WaitGroup

	mu        sync.Mutex
	submitted []*api.Packet
}

// New creates a loopback transport around the given device.
func New(dev Device) *Transport {
	t := &Transport{dev: dev}
	t.frames.Init(ringCapacity)
	return t
}

// Bind implements api.Transport.
func (t *Transport) Bind(sink api.FrameSink) {
	t.sink = sink
}

// Start implements api.Transport: spawns the receive loop.
func (t *Transport) Start() error {
	if t.closed.Load() != 0 {
		return api.ErrShutdown
	}
	if t.started.Add(1) != 1 {
		return api.ErrAlreadySubmitted
	}
	t.wg.Add(1)
	go t.rxLoop()
	return nil
}

// Shutdown implements api.Transport: stops the receive loop and
// completes every unfinished packet with ErrShutdown.
func (t *Transport) Shutdown() {
	if t.closed.Add(1) != 1 {
		return
	}
	t.wg.Wait()

	t.mu.Lock()
	pkts := make([]*api.Packet, len(t.submitted))
	copy(pkts, t.submitted)
	t.mu.Unlock()

	for _, p := range pkts {
		p.Finish(api.ErrShutdown)
	}
}

// Submit implements api.Transport.
func (t *Transport) Submit(p *api.Packet) error {
	if t.closed.Load() != 0 {
		return api.ErrShutdown
	}
	if err := p.Acquire(); err != nil {
		return err
	}

	t.mu.Lock()
	t.submitted = append(t.submitted, p)
	t.mu.Unlock()

	// the line acknowledged the packet
	if !p.Finish(nil) {
		return nil
	}
	if p.Flush || len(p.Payload) == 0 {
		return nil
	}

	cmd, data, err := protocol.ParseCommand(p.Payload)
	if err != nil {
		return nil
	}
	if replies := t.dev(cmd, data); replies != nil {
		t.post(replies)
	}
	return nil
}

// Cancel implements api.Transport.
func (t *Transport) Cancel(p *api.Packet) {
	p.Lock()
	p.Finish(api.ErrCanceled)
}

// PostEvent injects an unsolicited event frame, as if the device had
// sent one on its own.
func (t *Transport) PostEvent(cmd *protocol.Command, data []byte) {
	if t.closed.Load() != 0 {
		return
	}
	t.post([][]byte{cmd.Encode(data)})
}

// post enqueues frames for the receive loop, waiting out backpressure.
func (t *Transport) post(frames [][]byte) {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	for _, frame := range frames {
		f := frame
		var bo iox.Backoff
		for {
			if err := t.frames.Enqueue(&f); err == nil {
				break
			}
			if t.closed.Load() != 0 {
				return
			}
			bo.Wait()
		}
	}
}

// rxLoop drains the frame ring into the sink, backing off while idle.
func (t *Transport) rxLoop() {
	defer t.wg.Done()

	var bo iox.Backoff
	for {
		frame, err := t.frames.Dequeue()
		if err != nil {
			if t.closed.Load() != 0 {
				return
			}
			bo.Wait()
			continue
		}
		bo = iox.Backoff{}
		if t.sink != nil {
			t.sink.HandleFrame(frame)
		}
	}
}
