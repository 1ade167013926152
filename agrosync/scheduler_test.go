// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	ran   chan struct{} // receives one token per completed cycle
}

func newFakeRunner(err error) *fakeRunner {
	return &fakeRunner{err: err, ran: make(chan struct{}, 16)}
}

func (f *fakeRunner) RunSyncCycle(ctx context.Context) (*SyncSummary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	if f.err != nil {
		return nil, f.err
	}
	return &SyncSummary{Inserted: 1}, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestScheduler_FirstCycleFiresImmediately(t *testing.T) {
	runner := newFakeRunner(nil)
	// Interval long enough that only the immediate cycle can run.
	s := NewScheduler(runner, time.Hour, testLogger())

	s.Start()
	s.Stop()

	if got := runner.callCount(); got != 1 {
		t.Fatalf("Expected exactly the immediate cycle, got %d calls", got)
	}
	st := s.Status()
	if st.Running {
		t.Error("Scheduler must report not running after Stop")
	}
	if st.LastRunAt == nil {
		t.Error("LastRunAt must be recorded after the first cycle")
	}
	if st.LastSummary == nil || st.LastSummary.Inserted != 1 {
		t.Errorf("LastSummary must carry the cycle outcome, got %+v", st.LastSummary)
	}
	if st.LastError != "" {
		t.Errorf("Expected no error recorded, got %q", st.LastError)
	}
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	runner := newFakeRunner(nil)
	s := NewScheduler(runner, 5*time.Millisecond, testLogger())

	s.Start()
	defer s.Stop()

	// Immediate cycle plus at least one tick.
	for i := 0; i < 2; i++ {
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for cycle %d", i+1)
		}
	}
}

func TestScheduler_StartWhileRunningIsNoop(t *testing.T) {
	runner := newFakeRunner(nil)
	s := NewScheduler(runner, time.Hour, testLogger())

	s.Start()
	s.Start() // must not spawn a second loop
	if !s.Status().Running {
		t.Fatal("Scheduler must report running after Start")
	}
	s.Stop()

	if got := runner.callCount(); got != 1 {
		t.Errorf("Second Start must not trigger another immediate cycle, got %d calls", got)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(newFakeRunner(nil), time.Hour, testLogger())
	s.Stop() // never started

	s.Start()
	s.Stop()
	s.Stop() // already stopped

	if s.Status().Running {
		t.Error("Scheduler must stay stopped")
	}
}

func TestScheduler_RecordsCycleError(t *testing.T) {
	runner := newFakeRunner(errors.New("feed exploded"))
	s := NewScheduler(runner, time.Hour, testLogger())

	s.Start()
	s.Stop()

	st := s.Status()
	if !strings.Contains(st.LastError, "feed exploded") {
		t.Errorf("Expected cycle error in status, got %q", st.LastError)
	}
	if st.LastRunAt == nil {
		t.Error("Failed cycles must still record LastRunAt")
	}
}

func TestScheduler_AbsorbsInFlightDrop(t *testing.T) {
	runner := newFakeRunner(ErrSyncInFlight)
	s := NewScheduler(runner, time.Hour, testLogger())

	s.Start()
	s.Stop()

	// The dropped trigger is recorded but never stops the scheduler from
	// being restarted.
	s.Start()
	s.Stop()
	if got := runner.callCount(); got != 2 {
		t.Errorf("Expected one immediate cycle per Start, got %d", got)
	}
}

func TestNewScheduler_DefaultsInterval(t *testing.T) {
	s := NewScheduler(newFakeRunner(nil), 0, nil)
	if s.interval != DefaultSyncInterval {
		t.Errorf("Non-positive interval must fall back to %v, got %v", DefaultSyncInterval, s.interval)
	}
}
