package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the pause between the end of one cycle and the start of the next.
const DefaultInterval = time.Second

// TickFunc runs one cycle. The sequence number starts at 1.
type TickFunc func(ctx context.Context, seq int) error

// Options tune scheduler behaviour.
type Options struct {
	// Interval is a fixed delay measured from the end of a tick, so ticks never overlap.
	Interval     time.Duration
	StartupDelay time.Duration
	// MaxCycles stops the loop after that many ticks; zero runs until cancelled.
	MaxCycles int
}

// Scheduler drives sequential execution of cycles.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run invokes tick immediately and then after every delay until ctx is
// cancelled or MaxCycles is reached. Tick errors are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := s.wait(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	for seq := 1; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Debug().Int("seq", seq).Msg("executing cycle")
		if err := tick(ctx, seq); err != nil {
			s.logger.Error().Err(err).Int("seq", seq).Msg("cycle failed")
		}

		if s.opts.MaxCycles > 0 && seq >= s.opts.MaxCycles {
			return nil
		}

		if err := s.wait(ctx, s.opts.Interval); err != nil {
			return err
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
