// Package monitor marks open positions to market and exits them when a trigger fires.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/models"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
)

// Liquidator sells a share of an open position.
type Liquidator interface {
	Liquidate(ctx context.Context, pos models.Position, sellFraction float64) (models.Fill, error)
}

type Monitor struct {
	store     *position.Store
	prices    PriceSource
	simulated PriceSource
	exec      Liquidator
	notifier  notify.Notifier
	settings  config.Provider
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Monitor)

// WithSimulatedPrices marks synthetic and simulated positions with src instead of the live source.
func WithSimulatedPrices(src PriceSource) Option {
	return func(m *Monitor) { m.simulated = src }
}

func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

func New(store *position.Store, prices PriceSource, exec Liquidator, notifier notify.Notifier,
	settings config.Provider, log *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		store:    store,
		prices:   prices,
		exec:     exec,
		notifier: notifier,
		settings: settings,
		clock:    clock.System{},
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.notifier == nil {
		m.notifier = notify.Func(func(models.Event) {})
	}
	return m
}

// Evaluate returns the first trigger satisfied by pos at now, in the fixed order
// time limit, stop loss, take profit, trailing stop.
func Evaluate(pos models.Position, now time.Time, t config.TradingSettings) models.ExitTrigger {
	if t.MaxHold > 0 && now.Sub(pos.OpenedAt) >= t.MaxHold {
		return models.TriggerTimeLimit
	}
	if pos.EntryPrice <= 0 || pos.LastPrice <= 0 {
		return models.TriggerNone
	}
	change := (pos.LastPrice - pos.EntryPrice) / pos.EntryPrice
	if change <= -t.StopLoss {
		return models.TriggerStopLoss
	}
	if change >= t.TakeProfit {
		return models.TriggerTakeProfit
	}
	if t.TrailingStopEnabled && pos.HighWater > 0 {
		if (pos.LastPrice-pos.HighWater)/pos.HighWater <= -t.TrailingStop {
			return models.TriggerTrailingStop
		}
	}
	return models.TriggerNone
}

type quote struct {
	price float64
	err   error
}

type exit struct {
	pos     models.Position
	trigger models.ExitTrigger
}

// Sweep marks every open position and exits the triggered ones. Prices are fetched outside the
// store lock; marks and trigger decisions happen under it.
func (m *Monitor) Sweep(ctx context.Context) {
	cfg := m.settings.Current()
	snapshot := m.store.List()
	if len(snapshot) == 0 {
		m.metrics.RecordSweep()
		m.metrics.SetOpenPositions(0)
		return
	}

	quotes := m.fetchPrices(ctx, snapshot, cfg.APIs.RequestTimeout)

	now := m.clock.Now()
	var exits []exit
	for _, snap := range snapshot {
		q := quotes[snap.Address]
		var marked models.Position
		err := m.store.Update(snap.Address, func(p *models.Position) {
			if q.err == nil && q.price > 0 {
				mark(p, q.price, now)
			}
			marked = *p
		})
		if errors.Is(err, position.ErrNotFound) {
			continue
		}
		if q.err != nil {
			m.log.Debug("no price this sweep", zap.String("address", snap.Address), zap.Error(q.err))
		}
		if trig := Evaluate(marked, now, cfg.Trading); trig != models.TriggerNone {
			exits = append(exits, exit{pos: marked, trigger: trig})
		}
	}

	for _, e := range exits {
		m.exit(ctx, cfg, e.pos, e.trigger)
	}
	m.metrics.RecordSweep()
	m.metrics.SetOpenPositions(m.store.Len())
}

// mark applies an observed price. A position without a price-source anchor takes the first
// observation as its entry.
func mark(p *models.Position, price float64, now time.Time) {
	if !p.Anchored {
		p.EntryPrice = price
		p.HighWater = price
		p.Anchored = true
	}
	if price > p.HighWater {
		p.HighWater = price
	}
	p.LastPrice = price
	p.LastPriceAt = now
}

func (m *Monitor) fetchPrices(ctx context.Context, list []models.Position, timeout time.Duration) map[string]quote {
	out := make(map[string]quote, len(list))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, p := range list {
		wg.Add(1)
		go func(p models.Position) {
			defer wg.Done()
			src := m.sourceFor(p)
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			price, err := src.Price(cctx, p.Address)
			if err == nil && price <= 0 {
				err = ErrPriceUnavailable
			}
			mu.Lock()
			out[p.Address] = quote{price: price, err: err}
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}

func (m *Monitor) sourceFor(p models.Position) PriceSource {
	if m.simulated != nil && (p.Synthetic || p.Simulated) {
		return m.simulated
	}
	return m.prices
}

// MarkEntry anchors a freshly opened position to the price source so later marks share its units.
// Failure leaves the position unanchored; the first sweep anchors it instead.
func (m *Monitor) MarkEntry(ctx context.Context, p *models.Position) {
	ctx, cancel := context.WithTimeout(ctx, m.settings.Current().APIs.RequestTimeout)
	defer cancel()
	price, err := m.sourceFor(*p).Price(ctx, p.Address)
	if err != nil || price <= 0 {
		m.log.Debug("entry price unavailable", zap.String("address", p.Address), zap.Error(err))
		return
	}
	p.Anchored = false
	mark(p, price, m.clock.Now())
}

func (m *Monitor) exit(ctx context.Context, cfg *config.Settings, pos models.Position, trig models.ExitTrigger) {
	fraction := cfg.Trading.SellFraction
	if trig.FullExit() {
		fraction = 1
	}
	log := m.log.With(zap.String("address", pos.Address), zap.String("trigger", string(trig)))

	fill, err := m.exec.Liquidate(ctx, pos, fraction)
	if err != nil {
		if errors.Is(err, position.ErrNotFound) {
			log.Warn("position closed before exit", zap.Error(err))
			return
		}
		m.failed(cfg, pos, trig, err)
		return
	}

	closed, err := m.store.Remove(pos.Address)
	if err != nil {
		log.Warn("position vanished after a confirmed exit", zap.Error(err))
		closed = pos
	}

	committed := closed.QuoteAmount * fraction
	pnl := fill.OutputAmount - committed
	var pnlPct float64
	if committed > 0 {
		pnlPct = pnl / committed
	}
	residual := closed.Quantity - fill.InputAmount
	if residual < 0 || trig.FullExit() {
		residual = 0
	}

	m.metrics.RecordExit(string(trig))
	log.Info("position exited",
		zap.Float64("sold", fill.InputAmount),
		zap.Float64("sol", fill.OutputAmount),
		zap.Float64("pnl_sol", pnl),
		zap.Float64("pnl_pct", pnlPct*100),
		zap.Float64("residual", residual))
	m.notifier.Notify(models.Event{
		Kind:     models.EventExitTriggered,
		At:       m.clock.Now(),
		Position: closed,
		Fill:     fill,
		Trigger:  trig,
		PnL:      pnl,
		PnLPct:   pnlPct,
		Residual: residual,
	})
}

// failed counts the attempt. Crossing the retry bound, and every further bound's worth of
// attempts, raises a fatal alert; the position stays open for the next sweep.
func (m *Monitor) failed(cfg *config.Settings, pos models.Position, trig models.ExitTrigger, cause error) {
	var updated models.Position
	err := m.store.Update(pos.Address, func(p *models.Position) {
		p.ExitAttempts++
		p.LastExitError = cause.Error()
		updated = *p
	})
	if err != nil {
		m.log.Warn("exit failed for a position no longer held", zap.String("address", pos.Address), zap.Error(cause))
		return
	}

	bound := cfg.Trading.MaxExitRetries
	fatal := updated.ExitAttempts > bound && (updated.ExitAttempts-bound-1)%(bound+1) == 0

	m.metrics.RecordExitFailure()
	m.log.Error("exit failed",
		zap.String("address", pos.Address),
		zap.String("trigger", string(trig)),
		zap.Int("attempts", updated.ExitAttempts),
		zap.Bool("fatal", fatal),
		zap.Error(cause))
	m.notifier.Notify(models.Event{
		Kind:     models.EventExitFailed,
		At:       m.clock.Now(),
		Position: updated,
		Trigger:  trig,
		Fatal:    fatal,
		Err:      cause,
	})
}
