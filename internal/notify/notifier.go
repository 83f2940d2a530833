package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana_sniper/internal/metrics"
	"solana_sniper/internal/models"
)

// Notifier reports pipeline events. Notify never blocks the caller and never fails.
type Notifier interface {
	Notify(ev models.Event)
}

// Sender delivers one event synchronously. Queue drives it from a single worker.
type Sender interface {
	Send(ctx context.Context, ev models.Event) error
}

// Func adapts a plain function to Notifier.
type Func func(ev models.Event)

func (f Func) Notify(ev models.Event) { f(ev) }

// Multi fans one event out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ev models.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

const (
	DefaultQueueSize = 256
	sendTimeout      = 15 * time.Second
)

// Queue buffers events on a bounded channel drained by one worker goroutine.
// A full queue drops the event with a warning.
type Queue struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	ch     chan models.Event
	done   chan struct{}
}

func NewQueue(sender Sender, size int, log *zap.Logger, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		sender:  sender,
		log:     log,
		metrics: m,
		ch:      make(chan models.Event, size),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) Notify(ev models.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- ev:
	default:
		q.metrics.RecordDroppedNotification()
		q.log.Warn("notification queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("address", eventAddress(ev)))
	}
}

// Close stops accepting events and waits until the queued ones are sent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for ev := range q.ch {
		q.deliver(ev)
	}
}

func (q *Queue) deliver(ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("notifier panic", zap.Any("panic", r), zap.String("kind", string(ev.Kind)))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := q.sender.Send(ctx, ev); err != nil {
		q.log.Warn("notification send failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

// Stdout writes every event to the log.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stdout{log: log.Named("events")}
}

func (s *Stdout) Send(_ context.Context, ev models.Event) error {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("address", eventAddress(ev)),
	}
	switch ev.Kind {
	case models.EventAcquisitionSucceeded:
		fields = append(fields,
			zap.Float64("sol", ev.Fill.InputAmount),
			zap.Float64("tokens", ev.Fill.OutputAmount),
			zap.Float64("slippage", ev.Fill.SlippageFraction),
			zap.String("endpoint", ev.Fill.Endpoint),
			zap.Bool("simulated", ev.Fill.Simulated))
	case models.EventExitTriggered:
		fields = append(fields,
			zap.String("trigger", string(ev.Trigger)),
			zap.Float64("pnl_sol", ev.PnL),
			zap.Float64("pnl_pct", ev.PnLPct*100),
			zap.Float64("residual", ev.Residual))
	case models.EventExitFailed:
		fields = append(fields,
			zap.String("trigger", string(ev.Trigger)),
			zap.Int("attempts", ev.Position.ExitAttempts),
			zap.Bool("fatal", ev.Fatal))
	case models.EventPortfolioSummary:
		if ev.Summary != nil {
			fields = append(fields,
				zap.Int("active", ev.Summary.Active),
				zap.Float64("invested", ev.Summary.Invested),
				zap.Float64("value", ev.Summary.CurrentValue),
				zap.Float64("pnl_pct", ev.Summary.PnLPct*100))
		}
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}

	switch {
	case ev.Fatal || ev.Kind == models.EventReconciliationError:
		s.log.Error(headline(ev), fields...)
	case ev.Err != nil:
		s.log.Warn(headline(ev), fields...)
	default:
		s.log.Info(headline(ev), fields...)
	}
	return nil
}

func headline(ev models.Event) string {
	switch ev.Kind {
	case models.EventAcquisitionSucceeded:
		return fmt.Sprintf("bought %s", ev.Instrument.Label())
	case models.EventExitTriggered:
		return fmt.Sprintf("sold %s", label(ev.Position))
	case models.EventPortfolioSummary:
		return "portfolio summary"
	default:
		return string(ev.Kind)
	}
}

func eventAddress(ev models.Event) string {
	switch {
	case ev.Instrument.Address != "":
		return ev.Instrument.Address
	case ev.Position.Address != "":
		return ev.Position.Address
	default:
		return ev.Fill.Address
	}
}
