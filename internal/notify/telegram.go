package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/models"
	"solana_sniper/internal/position"
)

// Portfolio is the read side of the position store used by bot commands.
type Portfolio interface {
	List() []models.Position
}

// Telegram sends alerts to one chat and answers /positions and /summary from it.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	settings  config.Provider
	portfolio Portfolio
	clock     clock.Clock
	log       *zap.Logger

	mu      sync.Mutex
	polling bool
}

type TelegramOption func(*telegramOptions)

type telegramOptions struct {
	endpoint string
	client   tgbot.HTTPClient
	clock    clock.Clock
}

// WithBotAPI points the bot at another API endpoint, e.g. a local fake.
func WithBotAPI(endpoint string, client tgbot.HTTPClient) TelegramOption {
	return func(o *telegramOptions) {
		o.endpoint = endpoint
		o.client = client
	}
}

func WithTelegramClock(c clock.Clock) TelegramOption {
	return func(o *telegramOptions) { o.clock = c }
}

// NewTelegram authenticates the bot (getMe) and binds it to the configured chat.
func NewTelegram(settings config.Provider, portfolio Portfolio, log *zap.Logger, opts ...TelegramOption) (*Telegram, error) {
	o := telegramOptions{
		endpoint: tgbot.APIEndpoint,
		client:   &http.Client{},
		clock:    clock.System{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}

	cfg := settings.Current().Telegram
	b, err := tgbot.NewBotAPIWithClient(cfg.BotToken, o.endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Telegram{
		bot:       b,
		chatID:    cfg.ChatID,
		settings:  settings,
		portfolio: portfolio,
		clock:     o.clock,
		log:       log.Named("telegram"),
	}, nil
}

// Username is the bot account name returned by getMe.
func (t *Telegram) Username() string { return t.bot.Self.UserName }

// Send delivers ev if its alert kind is switched on.
func (t *Telegram) Send(_ context.Context, ev models.Event) error {
	if !Wants(t.settings.Current().Telegram, ev) {
		return nil
	}
	return t.SendText(FormatEvent(ev))
}

func (t *Telegram) SendText(text string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Wants applies the per-kind alert toggles.
func Wants(cfg config.TelegramSettings, ev models.Event) bool {
	if !cfg.NotificationsEnabled {
		return false
	}
	switch ev.Kind {
	case models.EventAcquisitionSucceeded:
		return cfg.SendBuyAlerts
	case models.EventExitTriggered:
		return cfg.SendSellAlerts
	case models.EventExitFailed:
		return cfg.SendErrorAlerts && ev.Fatal
	case models.EventReconciliationError:
		return true
	case models.EventAcquisitionFailed, models.EventPipelineError:
		return cfg.SendErrorAlerts
	case models.EventPortfolioSummary:
		return cfg.SendProfitSummaries
	default:
		return false
	}
}

// Start long-polls for commands from the configured chat until ctx ends or Stop.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}
	t.mu.Lock()
	if t.polling {
		t.mu.Unlock()
		return
	}
	t.polling = true
	t.mu.Unlock()

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if reply, handled := t.HandleCommand(upd.Message); handled {
					if err := t.SendText(reply); err != nil {
						t.log.Warn("command reply failed", zap.Error(err))
					}
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.polling {
		t.bot.StopReceivingUpdates()
		t.polling = false
	}
}

// HandleCommand answers a chat command. Messages from other chats are ignored.
func (t *Telegram) HandleCommand(msg *tgbot.Message) (string, bool) {
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
		return "", false
	}
	now := t.clock.Now()
	switch msg.Command() {
	case "positions":
		return FormatPositions(t.list(), now), true
	case "summary":
		return FormatSummary(position.Summarize(t.list(), now)), true
	case "start", "help":
		return "Commands:\n/positions - open positions\n/summary - portfolio summary", true
	default:
		return "", false
	}
}

func (t *Telegram) list() []models.Position {
	if t.portfolio == nil {
		return nil
	}
	return t.portfolio.List()
}
