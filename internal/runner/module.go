package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(st *config.Store) config.Provider { return st },
			position.NewStore,
			metrics.New,
			NewPipeline, // *Pipeline
			func(p *Pipeline, store *position.Store, n notify.Notifier, settings config.Provider, m *metrics.Metrics, log *zap.Logger) *Runner {
				return New(p.Scanner, p.Scorer, p.Executor, p.Monitor, store, n, settings, log.Named("runner"), WithMetrics(m))
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, p *Pipeline, r *Runner, log *zap.Logger) {
			var stopStream context.CancelFunc
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					ctx, cancel := context.WithCancel(context.Background())
					stopStream = cancel
					if p.PumpPortal != nil {
						go p.PumpPortal.Run(ctx)
						log.Info("pumpportal stream started")
					}
					r.Start(ctx)
					return nil
				},
				OnStop: func(_ context.Context) error {
					r.Stop()
					if stopStream != nil {
						stopStream()
					}
					return nil
				},
			})
		}),
	)
}
