// File: control/metrics_test.go
// License: Apache-2.0

package control

import (
	"sync"
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	var m Metrics

	m.IncSubmitted()
	m.IncSubmitted()
	m.IncCompleted()
	m.IncTimeout()
	m.IncCanceled()
	m.IncEvent()
	m.IncDroppedFrame()
	m.IncProtocolError()

	if m.Submitted() != 2 {
		t.Errorf("Expected 2 submissions, got %d", m.Submitted())
	}
	snap := m.Snapshot()
	want := map[string]uint32{
		"submitted":       2,
		"completed":       1,
		"timeouts":        1,
		"canceled":        1,
		"events":          1,
		"dropped_frames":  1,
		"protocol_errors": 1,
	}
	for name, value := range want {
		if snap[name] != value {
			t.Errorf("Expected %s=%d, got %d", name, value, snap[name])
		}
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	var m Metrics
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.IncCompleted()
			}
		}()
	}
	wg.Wait()

	if m.Completed() != 8000 {
		t.Errorf("Expected 8000 completions, got %d", m.Completed())
	}
}
