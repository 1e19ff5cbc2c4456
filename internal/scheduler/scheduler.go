// Package scheduler triggers the daily all-users WOD fan-out on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/redact"
)

// DefaultSpec runs the fan-out every day at 06:00 UTC. Specs carry a leading
// seconds field.
const DefaultSpec = "0 0 6 * * *"

// DefaultRunTimeout bounds one fan-out run.
const DefaultRunTimeout = 5 * time.Minute

// FanOut publishes one generation request per known user.
type FanOut interface {
	RequestWodsForAllUsers(ctx context.Context) ([]domain.RequestRecord, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunTimeout overrides DefaultRunTimeout.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Scheduler runs a FanOut on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	fanout   FanOut
	timeout  time.Duration
	running  atomic.Bool
	logger   *slog.Logger
}

// New parses spec and returns a Scheduler for fanout.
func New(spec string, fanout FanOut, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if fanout == nil {
		return nil, errors.New("fan-out cannot be nil")
	}
	if spec == "" {
		spec = DefaultSpec
	}
	schedule, err := cron.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		spec:     spec,
		schedule: schedule,
		fanout:   fanout,
		timeout:  DefaultRunTimeout,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first activation strictly after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// RunOnce performs a single fan-out.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous fan-out still running, skipping tick")
		return nil
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	recs, err := s.fanout.RequestWodsForAllUsers(ctx)
	if err != nil {
		s.logger.Error("scheduled fan-out failed",
			slog.String("error", redact.Error(err)),
			slog.Int("enqueued", len(recs)),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}

	s.logger.Info("scheduled fan-out enqueued",
		slog.Int("enqueued", len(recs)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Run starts the cron loop and blocks until ctx is cancelled. Runs already
// in flight see ctx cancellation and return promptly.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.NewWithLocation(time.UTC)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_ = s.RunOnce(ctx)
	}))

	s.logger.Info("scheduler started",
		slog.String("spec", s.spec),
		slog.Time("next_run", s.Next(time.Now().UTC())))
	c.Start()

	<-ctx.Done()
	c.Stop()
	s.logger.Info("scheduler stopped")
	return nil
}
