package scheduler

import (
	"context"
	"time"

	"github.com/inkwavehq/inkwave/internal/config"
	"go.uber.org/fx"
)

func newRenewalSweeper(p RenewalSweeperParam, cfg config.Config) *RenewalSweeper {
	return NewRenewalSweeper(p, time.Duration(cfg.RenewalInterval)*time.Second)
}

var Module = fx.Module("scheduler.renewal",
	fx.Provide(newRenewalSweeper),
	fx.Invoke(func(lc fx.Lifecycle, sweeper *RenewalSweeper) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				sweeper.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				sweeper.Stop()
				return nil
			},
		})
	}),
)
