// File: rtl/timeout_test.go
// License: Apache-2.0

package rtl_test

import (
	"errors"
	"testing"
	"time"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/fake"
	"github.com/embedlink/eclink/rtl"
)

func TestLayer_Timeout(t *testing.T) {
	tp := fake.NewTransport()
	// acknowledged but never answered
	l := newLayer(t, tp, shortCfg(), rtl.Ops{})
	defer l.Shutdown()

	rec := newRecorder()
	start := time.Now()
	submit(t, l, cmdPayload(0x01), rtl.HasResponse, rec)

	res := rec.wait(t)
	if !errors.Is(res.status, api.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", res.status)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected the timeout to honor the deadline, fired after %v", elapsed)
	}

	if l.Pending() != 0 {
		t.Errorf("Expected empty pending set after the timeout, got %d", l.Pending())
	}
	if l.Metrics().Timeouts() != 1 {
		t.Errorf("Expected 1 timeout, got %d", l.Metrics().Timeouts())
	}
}

func TestLayer_TimeoutFreesSlots(t *testing.T) {
	tp := fake.NewTransport()
	l := newLayer(t, tp, shortCfg(), rtl.Ops{})
	defer l.Shutdown()

	// more requests than the pending bound: later ones are only admitted
	// once earlier ones time out
	recs := make([]*recorder, 5)
	for i := range recs {
		recs[i] = newRecorder()
		submit(t, l, cmdPayload(byte(i)), rtl.HasResponse, recs[i])
	}

	for i, rec := range recs {
		if res := rec.wait(t); !errors.Is(res.status, api.ErrTimeout) {
			t.Errorf("Expected request %d to time out, got %v", i, res.status)
		}
	}
	if l.Metrics().Timeouts() != 5 {
		t.Errorf("Expected 5 timeouts, got %d", l.Metrics().Timeouts())
	}
	if l.Pending() != 0 {
		t.Errorf("Expected empty pending set, got %d", l.Pending())
	}
}

func TestLayer_ResponseBeatsTimeout(t *testing.T) {
	tp := fake.NewTransport()
	tp.SetResponder(fake.EchoResponder)
	l := newLayer(t, tp, shortCfg(), rtl.Ops{})
	defer l.Shutdown()

	rec := newRecorder()
	submit(t, l, cmdPayload(0x01), rtl.HasResponse, rec)

	res := rec.wait(t)
	if res.status != nil {
		t.Fatalf("Expected a successful completion, got %v", res.status)
	}

	// give the reaper a chance to misfire
	time.Sleep(100 * time.Millisecond)
	if l.Metrics().Timeouts() != 0 {
		t.Errorf("Expected no timeout for an answered request, got %d", l.Metrics().Timeouts())
	}
}
