// File: rtl/helper_test.go
// License: Apache-2.0

package rtl_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/control"
	"github.com/embedlink/eclink/protocol"
	"github.com/embedlink/eclink/rtl"
)

// newLayer builds and starts a layer with a silent logger.
func newLayer(t *testing.T, tp api.Transport, cfg control.Config, ops rtl.Ops) *rtl.Layer {
	t.Helper()
	l := rtl.New(tp, ops, cfg, zerolog.Nop())
	if err := l.Start(); err != nil {
		t.Fatalf("Expected layer start to succeed, got %v", err)
	}
	return l
}

// shortCfg shrinks the timeout knobs so reaper tests finish quickly.
func shortCfg() control.Config {
	cfg := control.Default()
	cfg.RequestTimeoutMS = 40
	cfg.TimeoutResolutionMS = 10
	return cfg
}

// cmdPayload encodes a minimal command frame with a tag byte as data.
func cmdPayload(tag byte) []byte {
	return (&protocol.Command{
		Type:           protocol.PayloadTypeCommand,
		TargetCategory: 0x01,
		CommandID:      tag,
	}).Encode([]byte{tag})
}

type result struct {
	cmd    *protocol.Command
	data   []byte
	status error
}

// recorder captures the completion of a single request and signals its
// release.
type recorder struct {
	mu       sync.Mutex
	results  []result
	released chan struct{}
}

func newRecorder() *recorder {
	return &recorder{released: make(chan struct{})}
}

func (rec *recorder) ops() rtl.RequestOps {
	return rtl.RequestOps{
		Complete: func(_ *rtl.Request, cmd *protocol.Command, data []byte, status error) {
			rec.mu.Lock()
			rec.results = append(rec.results, result{cmd: cmd, data: data, status: status})
			rec.mu.Unlock()
		},
		Release: func(*rtl.Request) { close(rec.released) },
	}
}

// wait blocks until the request is released and asserts it completed
// exactly once.
func (rec *recorder) wait(t *testing.T) result {
	t.Helper()
	select {
	case <-rec.released:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for request release")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.results) != 1 {
		t.Fatalf("Expected exactly one completion, got %d", len(rec.results))
	}
	return rec.results[0]
}

// submit queues a request and drops the caller's reference, so release
// fires once the layer is done with it.
func submit(t *testing.T, l *rtl.Layer, payload []byte, flags rtl.RequestFlags, rec *recorder) {
	t.Helper()
	r := rtl.NewRequest(payload, flags, rec.ops())
	if err := l.Submit(r); err != nil {
		t.Fatalf("Expected Submit to succeed, got %v", err)
	}
	r.Put()
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}
