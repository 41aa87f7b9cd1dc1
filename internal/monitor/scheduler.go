package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// checker is the unit of work the scheduler drives once per interval.
type checker interface {
	CheckAllRoutes(ctx context.Context)
}

// Scheduler triggers monitoring passes on a fixed interval. At most one
// pass runs at a time: a tick that fires while the previous pass is still
// in flight is skipped rather than queued.
type Scheduler struct {
	checker  checker
	interval time.Duration
	logger   *slog.Logger

	running atomic.Bool

	mu           sync.Mutex
	lastTick     time.Time
	lastDuration time.Duration
	tickCount    uint64
	skipped      uint64
}

// SchedulerStatus is a point-in-time snapshot for diagnostics.
type SchedulerStatus struct {
	Interval     string    `json:"interval"`
	Running      bool      `json:"pass_in_flight"`
	LastTick     time.Time `json:"last_tick"`
	NextTick     time.Time `json:"next_tick"`
	LastDuration string    `json:"last_duration"`
	TickCount    uint64    `json:"tick_count"`
	Skipped      uint64    `json:"skipped_ticks"`
}

// NewScheduler creates a scheduler driving the given checker.
func NewScheduler(c checker, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		checker:  c,
		interval: interval,
		logger:   logger,
	}
}

// Start runs an immediate first pass and then ticks on the configured
// interval until the context is cancelled. It blocks; run it in its own
// goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one monitoring pass unless one is already in flight, in which
// case it returns false immediately.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn("previous pass still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	start := time.Now()
	s.checker.CheckAllRoutes(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.lastTick = start
	s.lastDuration = elapsed
	s.tickCount++
	s.mu.Unlock()

	return true
}

// Status reports scheduler diagnostics for the API.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	if !s.lastTick.IsZero() {
		next = s.lastTick.Add(s.interval)
	}

	return SchedulerStatus{
		Interval:     s.interval.String(),
		Running:      s.running.Load(),
		LastTick:     s.lastTick,
		NextTick:     next,
		LastDuration: s.lastDuration.String(),
		TickCount:    s.tickCount,
		Skipped:      s.skipped,
	}
}
