package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/journal"
	"solana_sniper/pkg/db"
)

const connectTimeout = 15 * time.Second

// NewJournal connects to DATABASE_DSN and migrates the journal tables. Without a DSN the journal is
// disabled and nil is provided.
func NewJournal(lc fx.Lifecycle, s *config.Settings, log *zap.Logger) (*journal.Journal, error) {
	if s.Runtime.DatabaseDSN == "" {
		log.Info("trade journal disabled, DATABASE_DSN not set")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := db.Open(ctx, db.Config{
		DSN:            s.Runtime.DatabaseDSN,
		MaxConns:       4,
		ConnectTimeout: connectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	pg := db.NewPostgres(pool)
	j := journal.New(pg, log)
	if err := j.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pg.Close()
			return nil
		},
	})
	log.Info("trade journal enabled")
	return j, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewJournal,
		),
	)
}
