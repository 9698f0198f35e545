// File: control/metrics.go
// License: Apache-2.0
//
// Runtime counters for the request transmission layer.

package control

import "code.hybscloud.com/atomix"

// Metrics collects per-layer counters. All methods are safe for
// concurrent use; counters only ever increase.
type Metrics struct {
	submitted      atomix.Uint32
	completed      atomix.Uint32
	timeouts       atomix.Uint32
	canceled       atomix.Uint32
	events         atomix.Uint32
	droppedFrames  atomix.Uint32
	protocolErrors atomix.Uint32
}

func (m *Metrics) IncSubmitted()     { m.submitted.Add(1) }
func (m *Metrics) IncCompleted()     { m.completed.Add(1) }
func (m *Metrics) IncTimeout()       { m.timeouts.Add(1) }
func (m *Metrics) IncCanceled()      { m.canceled.Add(1) }
func (m *Metrics) IncEvent()         { m.events.Add(1) }
func (m *Metrics) IncDroppedFrame()  { m.droppedFrames.Add(1) }
func (m *Metrics) IncProtocolError() { m.protocolErrors.Add(1) }

func (m *Metrics) Submitted() uint32 { return m.submitted.Load() }
func (m *Metrics) Completed() uint32 { return m.completed.Load() }
func (m *Metrics) Timeouts() uint32  { return m.timeouts.Load() }
func (m *Metrics) Canceled() uint32  { return m.canceled.Load() }
func (m *Metrics) Events() uint32    { return m.events.Load() }

// Snapshot returns the current counter values keyed by name.
func (m *Metrics) Snapshot() map[string]uint32 {
	return map[string]uint32{
		"submitted":       m.submitted.Load(),
		"completed":       m.completed.Load(),
		"timeouts":        m.timeouts.Load(),
		"canceled":        m.canceled.Load(),
		"events":          m.events.Load(),
		"dropped_frames":  m.droppedFrames.Load(),
		"protocol_errors": m.protocolErrors.Load(),
	}
}
