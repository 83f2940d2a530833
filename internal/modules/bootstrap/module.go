package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana_sniper/internal/journal"
	"solana_sniper/internal/position"
)

const restoreTimeout = 30 * time.Second

// Restore loads the positions the journal still has open into the store, so the exit monitor
// keeps watching them after a restart.
func Restore(j *journal.Journal, store *position.Store, log *zap.Logger) error {
	if j == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	open, err := j.OpenPositions(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, p := range open {
		if err := store.Insert(p); err != nil {
			log.Warn("skipping journal position", zap.String("address", p.Address), zap.Error(err))
			continue
		}
		restored++
	}
	log.Info("[BOOT] positions restored from journal", zap.Int("count", restored))
	return nil
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Invoke(Restore),
	)
}
