// Package schedule triggers daily ingestion runs on weekday mornings.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/feed"
)

// Job is one ingestion pass.
type Job func(ctx context.Context) error

// Config fixes the daily trigger and the weekday gate.
//
// The trigger wall-clock time is evaluated in TriggerLocation while
// the weekday gate is evaluated in GateLocation. Upstream these were
// two different references (process-local clock for the trigger,
// US/Eastern for the gate); they stay separate knobs here rather than
// being silently unified.
type Config struct {
	Hour            int
	Minute          int
	TriggerLocation *time.Location
	GateLocation    *time.Location
	PollInterval    time.Duration
}

// Scheduler fires its job once per calendar day at the configured
// wall-clock time, skipping days that fall on a weekend in the gate
// location. It is an explicit object holding the next trigger time;
// there is no hidden process-wide state.
type Scheduler struct {
	cfg    Config
	job    Job
	clock  feed.Clock
	logger *zap.Logger
	next   time.Time
}

// New constructs a Scheduler. Zero config fields get defaults: local
// locations and a one second poll interval.
func New(cfg Config, job Job, clock feed.Clock, logger *zap.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.TriggerLocation == nil {
		cfg.TriggerLocation = time.Local
	}
	if cfg.GateLocation == nil {
		cfg.GateLocation = time.Local
	}
	return &Scheduler{cfg: cfg, job: job, clock: clock, logger: logger}
}

// Next returns the currently armed trigger time.
func (s *Scheduler) Next() time.Time {
	return s.next
}

// Run polls until the context is done, firing the job whenever the
// armed trigger time has passed. The weekday gate is re-evaluated at
// every trigger rather than once at registration, so a process started
// mid-week stays quiet over the weekend and re-arms after it. One run
// executes at a time; the next trigger is armed only after the run
// returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.next = s.nextTrigger(s.clock.Now())
	s.logger.Info("scheduler armed", zap.Time("next_trigger", s.next))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := s.clock.Now()
			if now.Before(s.next) {
				continue
			}
			if s.gateOpen(now) {
				s.runJob(ctx)
			} else {
				s.logger.Info("weekend in gate timezone, skipping run",
					zap.Time("now", now.In(s.cfg.GateLocation)))
			}
			s.next = s.nextTrigger(s.clock.Now())
			s.logger.Info("scheduler re-armed", zap.Time("next_trigger", s.next))
		}
	}
}

// runJob isolates job failures: errors and panics are logged and the
// scheduler keeps ticking.
func (s *Scheduler) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled run panicked", zap.Any("panic", r))
		}
	}()
	start := s.clock.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled run completed", zap.Duration("elapsed", s.clock.Now().Sub(start)))
}

func (s *Scheduler) gateOpen(now time.Time) bool {
	wd := now.In(s.cfg.GateLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// nextTrigger returns the first configured wall-clock time strictly
// after now.
func (s *Scheduler) nextTrigger(now time.Time) time.Time {
	local := now.In(s.cfg.TriggerLocation)
	next := time.Date(local.Year(), local.Month(), local.Day(),
		s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.TriggerLocation)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
