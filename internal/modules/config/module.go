package config

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
)

// Module provides the settings snapshot store and keeps it watching for reloads while the app runs.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewStore,
		),
		fx.Invoke(func(lc fx.Lifecycle, st *config.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					st.Watch()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					st.Close()
					return nil
				},
			})
		}),
	)
}

// NewStore wraps the settings loaded at startup.
func NewStore(s *config.Settings, log *zap.Logger) *config.Store {
	return config.NewStore(s, log.Named("config"))
}
