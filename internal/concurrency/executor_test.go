// File: internal/concurrency/executor_test.go
// License: Apache-2.0

package concurrency

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestExecutor_RunsTasks(t *testing.T) {
	e := NewExecutor(4)
	defer e.Close()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := e.Submit(func() {
			ran.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Expected Submit to succeed, got %v", err)
		}
	}
	wg.Wait()

	if ran.Load() != 100 {
		t.Errorf("Expected 100 tasks to run, got %d", ran.Load())
	}
}

func TestExecutor_DefaultWorkers(t *testing.T) {
	e := NewExecutor(0)
	defer e.Close()

	if e.NumWorkers() < 1 {
		t.Errorf("Expected at least one worker, got %d", e.NumWorkers())
	}
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	e := NewExecutor(1)
	e.Close()

	if err := e.Submit(func() {}); !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Expected ErrExecutorClosed, got %v", err)
	}
}

func TestExecutor_CloseIdempotent(t *testing.T) {
	e := NewExecutor(2)
	e.Close()
	e.Close()
}
