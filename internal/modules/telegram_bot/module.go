package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/journal"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
)

// Alerts is the set of queues behind the pipeline's notifier.
type Alerts struct {
	Telegram *notify.Telegram
	queues   []*notify.Queue
	notifier notify.Notifier
}

// NewAlerts sends events to Telegram when a bot token and chat are configured, else to the log.
// The journal, when present, gets its own queue so a slow chat never delays persistence.
func NewAlerts(s *config.Settings, st *config.Store, store *position.Store, j *journal.Journal, m *metrics.Metrics, log *zap.Logger) *Alerts {
	a := &Alerts{}
	var primary notify.Sender = notify.NewStdout(log)
	if s.TelegramEnabled() {
		tg, err := notify.NewTelegram(st, store, log)
		if err != nil {
			log.Error("telegram unavailable, alerts go to the log", zap.Error(err))
		} else {
			log.Info("telegram alerts enabled", zap.String("bot", tg.Username()), zap.Int64("chat", s.Telegram.ChatID))
			a.Telegram = tg
			primary = tg
		}
	}
	a.queues = append(a.queues, notify.NewQueue(primary, notify.DefaultQueueSize, log, m))
	if j != nil {
		a.queues = append(a.queues, notify.NewQueue(j, notify.DefaultQueueSize, log, m))
	}

	multi := make(notify.Multi, 0, len(a.queues))
	for _, q := range a.queues {
		multi = append(multi, q)
	}
	a.notifier = multi
	return a
}

func (a *Alerts) Notifier() notify.Notifier { return a.notifier }

// Close drains every queue.
func (a *Alerts) Close() {
	for _, q := range a.queues {
		q.Close()
	}
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewAlerts,
			func(a *Alerts) notify.Notifier { return a.Notifier() },
		),
		fx.Invoke(
			func(lc fx.Lifecycle, a *Alerts) {
				var cancel context.CancelFunc
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						var ctx context.Context
						ctx, cancel = context.WithCancel(context.Background())
						if a.Telegram != nil {
							a.Telegram.Start(ctx)
						}
						return nil
					},
					OnStop: func(context.Context) error {
						if a.Telegram != nil {
							a.Telegram.Stop()
						}
						if cancel != nil {
							cancel()
						}
						a.Close()
						return nil
					},
				})
			},
		),
	)
}
