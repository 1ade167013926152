// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSyncInterval is the period between scheduled sync cycles.
const DefaultSyncInterval = 10 * time.Second

// CycleRunner is the engine surface driven by the scheduler.
type CycleRunner interface {
	RunSyncCycle(ctx context.Context) (*SyncSummary, error)
}

// SchedulerStatus is a point-in-time snapshot of the scheduler state.
type SchedulerStatus struct {
	Running     bool          `json:"running"`
	Interval    time.Duration `json:"interval"`
	LastRunAt   *time.Time    `json:"lastRunAt,omitempty"`
	LastSummary *SyncSummary  `json:"lastSummary,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
}

// Scheduler drives the reconciliation engine on a fixed interval. It owns
// its running state; there is no package-level singleton. The first cycle
// fires immediately on Start, subsequent cycles on every tick. Cycle errors
// are logged and absorbed: a failed cycle never stops the loop.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	lastRunAt   *time.Time
	lastSummary *SyncSummary
	lastError   error
}

// NewScheduler creates a scheduler over the given engine. A non-positive
// interval falls back to DefaultSyncInterval.
func NewScheduler(runner CycleRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start launches the periodic loop. Starting an already-running scheduler is
// a logged no-op, not an error.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Info("Sync scheduler already running, start ignored")
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("Sync scheduler started", "interval", s.interval)
	go s.loop(loopCtx, s.done)
}

// Stop cancels future scheduled cycles and waits for the loop goroutine to
// exit. An in-flight cycle is allowed to finish: cycles run on their own
// context so stopping the scheduler never causes a partially-applied write
// group. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("Sync scheduler stopped")
}

// Status reports the current scheduler state and the last cycle outcome.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SchedulerStatus{
		Running:     s.running,
		Interval:    s.interval,
		LastRunAt:   s.lastRunAt,
		LastSummary: s.lastSummary,
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// First cycle fires immediately.
	s.runCycle()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle executes one cycle on a context independent of the loop context,
// so Stop never aborts a cycle mid-write.
func (s *Scheduler) runCycle() {
	now := time.Now()
	summary, err := s.runner.RunSyncCycle(context.Background())

	s.mu.Lock()
	s.lastRunAt = &now
	if summary != nil {
		s.lastSummary = summary
	}
	s.lastError = err
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrSyncInFlight):
		// Overlapping triggers are dropped; the next tick retries.
		s.logger.Warn("Skipping scheduled cycle, previous one still running",
			"reason", ReasonSyncInFlight)
	case err != nil:
		s.logger.Error("Scheduled sync cycle failed", "error", err)
	}
}
