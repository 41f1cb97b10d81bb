package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the idle delay between iterations.
const DefaultInterval = 30 * time.Second

// Runner executes one iteration.
type Runner interface {
	RunOnce(ctx context.Context) (*ScanResult, error)
}

// Supervisor re-runs the pipeline until its context is cancelled.
type Supervisor struct {
	runner   Runner
	interval time.Duration
	log      *zap.Logger
}

// NewSupervisor creates a supervisor. A non-positive interval uses DefaultInterval.
func NewSupervisor(runner Runner, interval time.Duration, log *zap.Logger) *Supervisor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{runner: runner, interval: interval, log: log}
}

// Run loops RunOnce with a fixed idle delay after every iteration, whatever
// its outcome. Recoverable errors are logged; Run returns only ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("starting scan loop", zap.Duration("interval", s.interval))

	for {
		if _, err := s.runner.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("iteration failed, retrying after delay", zap.Error(err))
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
