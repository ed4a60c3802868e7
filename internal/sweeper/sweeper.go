package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const runTimeout = 30 * time.Second

// Expirer closes sessions whose entry window passed without a validation.
type Expirer interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	schedule string
	expirer  Expirer
	cron     *cron.Cron
}

func New(schedule string, expirer Expirer) *Sweeper {
	return &Sweeper{
		schedule: schedule,
		expirer:  expirer,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start registers the sweep and starts the scheduler. An empty schedule
// leaves the sweeper disabled.
func (s *Sweeper) Start() error {
	if s.schedule == "" {
		slog.Info("expiry sweeper disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	s.cron.Start()
	slog.Info("expiry sweeper started", "schedule", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("expiry sweeper did not stop in time", "error", ctx.Err())
	}
}

func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.expirer.SweepExpired(ctx); err != nil {
		slog.Error("expiry sweep failed", "error", err)
	}
}
