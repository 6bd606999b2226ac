package reconciler

import (
	"context"
	"time"

	"github.com/brightops/usagesync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// scheduleInterval is how often the built-in loop triggers a run when no
// external scheduler drives the job control endpoint.
const scheduleInterval = 24 * time.Hour

var Module = fx.Module("reconciler",
	fx.Provide(
		NewJobControl,
		NewService,
	),
	fx.Invoke(runOnSchedule),
)

func runOnSchedule(lc fx.Lifecycle, cfg config.Config, svc *Service, log *zap.Logger) {
	if !cfg.RunOnSchedule {
		return
	}

	log = log.Named("reconciler.schedule")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(scheduleInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := svc.Run(ctx, TriggerSchedule); err != nil {
							log.Warn("scheduled run not started", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
