package scheduler

import (
	"context"
	"time"

	"github.com/causabona/donare/internal/charge"
	"github.com/causabona/donare/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler drives the recurring-charge job on a fixed interval. An
// external cron calling `donare charge` works too; this keeps deployments
// without one self-contained.
type Scheduler struct {
	log      *zap.Logger
	interval time.Duration
	charge   *charge.Service
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Cfg    config.Config
	Charge *charge.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		interval: p.Cfg.ChargeInterval,
		charge:   p.Charge,
	}
}

// RunForever runs the charge job immediately and then on every tick until
// ctx is cancelled. Job errors are logged, never fatal: the next tick
// retries.
func (s *Scheduler) RunForever(ctx context.Context) {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.charge.Run(ctx); err != nil {
		s.log.Error("charge run failed", zap.Error(err))
	}
}
