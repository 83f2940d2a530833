package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/models"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubPrices struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  int
}

func (s *stubPrices) Price(_ context.Context, addr string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.prices[addr]
	if !ok {
		return 0, ErrPriceUnavailable
	}
	return p, nil
}

func (s *stubPrices) set(addr string, p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prices == nil {
		s.prices = map[string]float64{}
	}
	s.prices[addr] = p
}

func (s *stubPrices) drop(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, addr)
}

type stubLiquidator struct {
	mu        sync.Mutex
	err       error
	fractions []float64
}

func (l *stubLiquidator) Liquidate(_ context.Context, pos models.Position, fraction float64) (models.Fill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fractions = append(l.fractions, fraction)
	if l.err != nil {
		return models.Fill{}, l.err
	}
	sold := pos.Quantity * fraction
	return models.Fill{
		Address:      pos.Address,
		Side:         models.SideSell,
		InputAmount:  sold,
		OutputAmount: pos.Value() * fraction,
		Simulated:    true,
	}, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (e *eventLog) notifier() notify.Notifier {
	return notify.Func(func(ev models.Event) {
		e.mu.Lock()
		e.events = append(e.events, ev)
		e.mu.Unlock()
	})
}

func (e *eventLog) kinds() []models.EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.EventKind, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Kind)
	}
	return out
}

func trading() config.TradingSettings {
	return config.Defaults().Trading
}

func anchored(entry, hw, last float64) models.Position {
	return models.Position{
		Address:     "mint",
		OpenedAt:    t0,
		QuoteAmount: 0.1,
		Quantity:    100_000,
		EntryPrice:  entry,
		HighWater:   hw,
		LastPrice:   last,
		Anchored:    true,
	}
}

func TestEvaluate_FixedOrder(t *testing.T) {
	tr := trading()

	expired := anchored(1, 1, 0.1)
	assert.Equal(t, models.TriggerTimeLimit, Evaluate(expired, t0.Add(24*time.Hour), tr))

	stopAndTrail := anchored(1, 2, 0.4)
	assert.Equal(t, models.TriggerStopLoss, Evaluate(stopAndTrail, t0.Add(time.Hour), tr))

	takeAndTrail := anchored(1, 3, 1.6)
	assert.Equal(t, models.TriggerTakeProfit, Evaluate(takeAndTrail, t0.Add(time.Hour), tr))

	quiet := anchored(1, 1.1, 1.05)
	assert.Equal(t, models.TriggerNone, Evaluate(quiet, t0.Add(time.Hour), tr))
}

func TestEvaluate_StopLossBoundary(t *testing.T) {
	tr := trading()
	cases := []struct {
		price float64
		want  models.ExitTrigger
	}{
		{0.49, models.TriggerStopLoss},
		{0.50, models.TriggerStopLoss},
		{0.51, models.TriggerNone},
	}
	for _, tc := range cases {
		got := Evaluate(anchored(1.0, 1.0, tc.price), t0.Add(time.Minute), tr)
		assert.Equal(t, tc.want, got, "price %.2f", tc.price)
	}
}

func TestEvaluate_TrailingStop(t *testing.T) {
	tr := trading()
	now := t0.Add(time.Minute)

	assert.Equal(t, models.TriggerTrailingStop, Evaluate(anchored(1.0, 2.0, 1.39), now, tr))
	assert.Equal(t, models.TriggerNone, Evaluate(anchored(1.0, 2.0, 1.41), now, tr))

	tr.TrailingStopEnabled = false
	assert.Equal(t, models.TriggerNone, Evaluate(anchored(1.0, 2.0, 1.39), now, tr))
}

func TestEvaluate_NoPriceOnlyTimeLimit(t *testing.T) {
	tr := trading()
	p := models.Position{OpenedAt: t0}
	assert.Equal(t, models.TriggerNone, Evaluate(p, t0.Add(time.Hour), tr))
	assert.Equal(t, models.TriggerTimeLimit, Evaluate(p, t0.Add(25*time.Hour), tr))
}

type fixture struct {
	store  *position.Store
	prices *stubPrices
	exec   *stubLiquidator
	events *eventLog
	clock  *clock.Manual
	cfg    *config.Settings
	mon    *Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := config.Defaults()
	f := &fixture{
		store:  position.NewStore(),
		prices: &stubPrices{},
		exec:   &stubLiquidator{},
		events: &eventLog{},
		clock:  clock.NewManual(t0),
		cfg:    &s,
	}
	f.mon = New(f.store, f.prices, f.exec, f.events.notifier(), config.Fixed(f.cfg), zap.NewNop(), WithClock(f.clock))
	return f
}

func TestSweep_TakeProfitSellsFractionAndReportsResidual(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(anchored(1.0, 1.0, 1.0)))
	f.prices.set("mint", 1.6)
	f.clock.Advance(time.Minute)

	f.mon.Sweep(context.Background())

	assert.False(t, f.store.Has("mint"))
	assert.Equal(t, []float64{0.75}, f.exec.fractions)
	require.Equal(t, []models.EventKind{models.EventExitTriggered}, f.events.kinds())

	ev := f.events.events[0]
	assert.Equal(t, models.TriggerTakeProfit, ev.Trigger)
	assert.InDelta(t, 25_000, ev.Residual, 1e-6)
	assert.InDelta(t, 0.045, ev.PnL, 1e-9)
	assert.InDelta(t, 0.6, ev.PnLPct, 1e-9)
	assert.InDelta(t, 1.6, ev.Position.LastPrice, 1e-12)
	assert.InDelta(t, 1.6, ev.Position.HighWater, 1e-12)
}

func TestSweep_TimeLimitSellsEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(anchored(1.0, 1.0, 1.0)))
	f.prices.set("mint", 1.1)
	f.clock.Advance(24 * time.Hour)

	f.mon.Sweep(context.Background())

	assert.Equal(t, []float64{1}, f.exec.fractions)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.TriggerTimeLimit, f.events.events[0].Trigger)
	assert.Zero(t, f.events.events[0].Residual)
}

func TestSweep_UpdatesHighWaterWithoutTrigger(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(anchored(1.0, 1.0, 1.0)))

	f.prices.set("mint", 1.3)
	f.mon.Sweep(context.Background())
	f.prices.set("mint", 1.2)
	f.mon.Sweep(context.Background())

	p, err := f.store.Get("mint")
	require.NoError(t, err)
	assert.Equal(t, 1.3, p.HighWater)
	assert.Equal(t, 1.2, p.LastPrice)
	assert.Empty(t, f.exec.fractions)
	assert.Empty(t, f.events.kinds())
}

func TestSweep_AnchorsUnanchoredPosition(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(models.Position{
		Address: "mint", OpenedAt: t0, QuoteAmount: 0.1, Quantity: 100_000,
		EntryPrice: 1e-6, HighWater: 1e-6,
	}))
	f.prices.set("mint", 0.00042)

	f.mon.Sweep(context.Background())

	p, err := f.store.Get("mint")
	require.NoError(t, err)
	assert.True(t, p.Anchored)
	assert.Equal(t, 0.00042, p.EntryPrice)
	assert.Equal(t, 0.00042, p.HighWater)
	assert.Empty(t, f.exec.fractions)
}

func TestSweep_PriceUnavailableKeepsStateButChecksTimeLimit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(anchored(1.0, 1.2, 1.1)))
	f.prices.set("mint", 1.15)
	f.mon.Sweep(context.Background())

	f.prices.drop("mint")
	f.clock.Advance(time.Hour)
	f.mon.Sweep(context.Background())
	p, err := f.store.Get("mint")
	require.NoError(t, err)
	assert.Equal(t, 1.15, p.LastPrice)
	assert.Equal(t, t0, p.LastPriceAt)
	assert.Empty(t, f.exec.fractions)

	f.clock.Advance(24 * time.Hour)
	f.mon.Sweep(context.Background())
	assert.Equal(t, []float64{1}, f.exec.fractions)
	assert.False(t, f.store.Has("mint"))
}

func TestSweep_FailedExitRetriesAndEscalates(t *testing.T) {
	f := newFixture(t)
	f.exec.err = errors.New("all endpoints failed")
	require.NoError(t, f.store.Insert(anchored(1.0, 1.0, 1.0)))
	f.prices.set("mint", 0.3)

	var fatal []int
	for i := 1; i <= 8; i++ {
		f.mon.Sweep(context.Background())
		ev := f.events.events[len(f.events.events)-1]
		require.Equal(t, models.EventExitFailed, ev.Kind)
		require.Equal(t, i, ev.Position.ExitAttempts)
		if ev.Fatal {
			fatal = append(fatal, i)
		}
	}

	assert.Equal(t, []int{4, 8}, fatal)
	p, err := f.store.Get("mint")
	require.NoError(t, err)
	assert.Equal(t, 8, p.ExitAttempts)
	assert.Equal(t, "all endpoints failed", p.LastExitError)

	f.exec.err = nil
	f.mon.Sweep(context.Background())
	assert.False(t, f.store.Has("mint"))
	assert.Equal(t, models.EventExitTriggered, f.events.kinds()[len(f.events.kinds())-1])
}

func TestSweep_ExitOfRemovedPositionIsNotAFailure(t *testing.T) {
	f := newFixture(t)
	f.exec.err = position.ErrNotFound
	require.NoError(t, f.store.Insert(anchored(1.0, 1.0, 1.0)))
	f.prices.set("mint", 0.3)

	f.mon.Sweep(context.Background())

	p, err := f.store.Get("mint")
	require.NoError(t, err)
	assert.Zero(t, p.ExitAttempts)
	assert.Empty(t, f.events.kinds())
}

func TestSweep_SimulatedPositionsUseSimulatedSource(t *testing.T) {
	f := newFixture(t)
	sim := &stubPrices{}
	sim.set("synthetic", 2)
	f.mon = New(f.store, f.prices, f.exec, f.events.notifier(), config.Fixed(f.cfg), zap.NewNop(),
		WithClock(f.clock), WithSimulatedPrices(sim))

	p := anchored(2, 2, 2)
	p.Address = "synthetic"
	p.Synthetic = true
	require.NoError(t, f.store.Insert(p))

	f.mon.Sweep(context.Background())
	assert.Equal(t, 1, sim.calls)
	assert.Zero(t, f.prices.calls)
}

func TestMarkEntry(t *testing.T) {
	f := newFixture(t)
	p := models.Position{Address: "mint", EntryPrice: 1e-6, HighWater: 1e-6}

	f.mon.MarkEntry(context.Background(), &p)
	assert.False(t, p.Anchored)

	f.prices.set("mint", 0.002)
	f.mon.MarkEntry(context.Background(), &p)
	assert.True(t, p.Anchored)
	assert.Equal(t, 0.002, p.EntryPrice)
	assert.Equal(t, 0.002, p.HighWater)
	assert.Equal(t, t0, p.LastPriceAt)
}

func TestSweep_NoSOLRateNeverMarksWithGuessedRate(t *testing.T) {
	m := newFakeMarket(t)
	m.geckoDown.Store(true)
	clk := clock.NewManual(t0)
	prices := newPrices(t, m, clk)

	s := config.Defaults()
	store := position.NewStore()
	events := &eventLog{}
	mon := New(store, prices, &stubLiquidator{}, events.notifier(), config.Fixed(&s), zap.NewNop(), WithClock(clk))
	ctx := context.Background()

	pos := models.Position{Address: "USDCPAIR", OpenedAt: t0, QuoteAmount: 0.1, Quantity: 100_000, EntryPrice: 1e-6, HighWater: 1e-6}
	mon.MarkEntry(ctx, &pos)
	assert.False(t, pos.Anchored, "no SOL/USD rate means no entry mark")
	require.NoError(t, store.Insert(pos))

	mon.Sweep(ctx)
	held, err := store.Get("USDCPAIR")
	require.NoError(t, err)
	assert.False(t, held.Anchored)
	assert.Zero(t, held.LastPrice)

	// the rate comes back while the token's USD price is unchanged
	m.geckoDown.Store(false)
	clk.Advance(6 * time.Minute)
	mon.Sweep(ctx)
	mon.Sweep(ctx)

	held, err = store.Get("USDCPAIR")
	require.NoError(t, err)
	assert.True(t, held.Anchored)
	assert.InDelta(t, 0.3/200, held.EntryPrice, 1e-12)
	assert.InDelta(t, held.EntryPrice, held.LastPrice, 1e-12)
	assert.Empty(t, events.kinds())
}
