package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/executor"
	"solana_sniper/internal/models"
	"solana_sniper/internal/position"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubScanner struct {
	mu    sync.Mutex
	list  []models.Instrument
	err   error
	panic bool
	polls atomic.Int32
}

func (s *stubScanner) Poll(context.Context) ([]models.Instrument, error) {
	s.polls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic {
		panic("decoder blew up")
	}
	return s.list, s.err
}

func (s *stubScanner) SourceName() string { return "stub" }

type stubScorer struct {
	mu        sync.Mutex
	rejected  map[string]bool
	evaluated []string
}

func (s *stubScorer) Evaluate(_ context.Context, inst models.Instrument) models.EligibilityReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = append(s.evaluated, inst.Address)
	rep := models.EligibilityReport{Address: inst.Address, EvaluatedAt: t0}
	for _, name := range models.CriteriaOrder {
		passed := !(s.rejected[inst.Address] && name == models.CriterionCanSell)
		rep.Criteria = append(rep.Criteria, models.Criterion{Name: name, Passed: passed})
	}
	return rep
}

type stubAcquirer struct {
	mu     sync.Mutex
	err    error
	before func(inst models.Instrument)
	calls  []string
}

func (a *stubAcquirer) Acquire(_ context.Context, inst models.Instrument, quoteSOL, _ float64) (models.Fill, error) {
	a.mu.Lock()
	a.calls = append(a.calls, inst.Address)
	before, err := a.before, a.err
	a.mu.Unlock()
	if before != nil {
		before(inst)
	}
	if err != nil {
		return models.Fill{}, err
	}
	return models.Fill{
		Address:      inst.Address,
		Side:         models.SideBuy,
		InputAmount:  quoteSOL,
		OutputAmount: 100000,
		Price:        quoteSOL / 100000,
		Simulated:    true,
		At:           t0,
	}, nil
}

type stubMonitor struct {
	marked atomic.Int32
	sweeps atomic.Int32
}

func (m *stubMonitor) Sweep(context.Context) { m.sweeps.Add(1) }

func (m *stubMonitor) MarkEntry(_ context.Context, p *models.Position) {
	m.marked.Add(1)
	p.LastPrice = p.EntryPrice
	p.LastPriceAt = t0
}

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (l *eventLog) Notify(ev models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []models.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *eventLog) last() models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type fixture struct {
	scanner  *stubScanner
	scorer   *stubScorer
	acquirer *stubAcquirer
	monitor  *stubMonitor
	store    *position.Store
	events   *eventLog
	settings *config.Settings
	runner   *Runner
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := config.Defaults()
	s.Trading.PositionSizeSOL = 0.1
	s.Trading.MaxPositions = 2
	s.Monitoring.ScanInterval = 20 * time.Millisecond
	s.Monitoring.FastScanInterval = 10 * time.Millisecond
	s.Monitoring.MonitorInterval = 10 * time.Millisecond
	s.Monitoring.SummaryInterval = time.Hour

	f := &fixture{
		scanner:  &stubScanner{},
		scorer:   &stubScorer{rejected: map[string]bool{}},
		acquirer: &stubAcquirer{},
		monitor:  &stubMonitor{},
		store:    position.NewStore(),
		events:   &eventLog{},
		settings: &s,
	}
	n := 0
	base := []Option{
		WithClock(clock.NewManual(t0)),
		WithIDs(func() string { n++; return fmt.Sprintf("pos-%d", n) }),
	}
	f.runner = New(f.scanner, f.scorer, f.acquirer, f.monitor, f.store, f.events,
		config.Fixed(f.settings), zap.NewNop(), append(base, opts...)...)
	return f
}

func inst(addr string) models.Instrument {
	return models.Instrument{Address: addr, Symbol: "T" + addr, Dex: "stub", LiquiditySOL: 50, DiscoveredAt: t0}
}

func TestScanOnce_AcquiresEligibleCandidates(t *testing.T) {
	f := newFixture(t)
	f.scanner.list = []models.Instrument{inst("AAA"), inst("BBB")}
	f.scorer.rejected["BBB"] = true

	eligible := f.runner.ScanOnce(context.Background())

	assert.Equal(t, 1, eligible)
	assert.Equal(t, []string{"AAA"}, f.acquirer.calls)
	assert.Equal(t, int32(1), f.monitor.marked.Load())

	pos, err := f.store.Get("AAA")
	require.NoError(t, err)
	assert.Equal(t, "pos-1", pos.ID)
	assert.InDelta(t, 0.1, pos.QuoteAmount, 1e-12)
	assert.InDelta(t, 100000.0, pos.Quantity, 1e-9)
	assert.Equal(t, pos.EntryPrice, pos.HighWater)
	assert.Equal(t, t0, pos.OpenedAt)
	assert.True(t, pos.Simulated)
	assert.False(t, f.store.Has("BBB"))

	assert.Equal(t, []models.EventKind{models.EventAcquisitionSucceeded}, f.events.kinds())
	ev := f.events.last()
	assert.Equal(t, "AAA", ev.Instrument.Address)
	require.NotNil(t, ev.Report)
	assert.True(t, ev.Report.Eligible())
	assert.True(t, f.runner.Ready())
	assert.Equal(t, t0, f.runner.LastScan())
	assert.Equal(t, StateIdle, f.runner.State())
}

func TestScanOnce_SkipsHeldInstruments(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Insert(models.Position{ID: "x", Address: "AAA"}))
	f.scanner.list = []models.Instrument{inst("AAA")}

	assert.Equal(t, 0, f.runner.ScanOnce(context.Background()))
	assert.Empty(t, f.scorer.evaluated)
	assert.Empty(t, f.acquirer.calls)
}

func TestScanOnce_RespectsMaxPositions(t *testing.T) {
	f := newFixture(t)
	f.settings.Trading.MaxPositions = 1
	f.scanner.list = []models.Instrument{inst("AAA"), inst("BBB")}

	assert.Equal(t, 1, f.runner.ScanOnce(context.Background()))
	assert.Equal(t, []string{"AAA"}, f.acquirer.calls)
	assert.Equal(t, []string{"AAA"}, f.scorer.evaluated, "candidates past the limit are not scored")
	assert.Equal(t, 1, f.store.Len())
}

func TestScanOnce_ScanOnlyNeverAcquires(t *testing.T) {
	f := newFixture(t, ScanOnly())
	f.settings.Trading.MaxPositions = 1
	require.NoError(t, f.store.Insert(models.Position{ID: "x", Address: "ZZZ"}))
	f.scanner.list = []models.Instrument{inst("AAA"), inst("BBB")}

	assert.Equal(t, 2, f.runner.ScanOnce(context.Background()))
	assert.Empty(t, f.acquirer.calls)
	assert.Empty(t, f.events.kinds())
}

func TestScanOnce_AcquisitionFailure(t *testing.T) {
	f := newFixture(t)
	f.acquirer.err = executor.ErrSlippageExceeded
	f.scanner.list = []models.Instrument{inst("AAA")}

	assert.Equal(t, 1, f.runner.ScanOnce(context.Background()))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, int32(0), f.monitor.marked.Load())

	ev := f.events.last()
	assert.Equal(t, models.EventAcquisitionFailed, ev.Kind)
	assert.ErrorIs(t, ev.Err, executor.ErrSlippageExceeded)
	assert.False(t, ev.Fatal)
}

func TestScanOnce_ReconciliationWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.scanner.list = []models.Instrument{inst("AAA")}
	// the slot is taken while the buy is in flight
	f.acquirer.before = func(i models.Instrument) {
		_ = f.store.Insert(models.Position{ID: "other", Address: i.Address})
	}

	f.runner.ScanOnce(context.Background())

	ev := f.events.last()
	assert.Equal(t, models.EventReconciliationError, ev.Kind)
	assert.True(t, ev.Fatal)
	assert.ErrorIs(t, ev.Err, position.ErrDuplicate)
	assert.InDelta(t, 100000.0, ev.Fill.OutputAmount, 1e-9)

	held, err := f.store.Get("AAA")
	require.NoError(t, err)
	assert.Equal(t, "other", held.ID)
}

func TestScanOnce_PollError(t *testing.T) {
	f := newFixture(t)
	f.scanner.err = errors.New("dexscreener: 503")

	assert.Equal(t, 0, f.runner.ScanOnce(context.Background()))
	assert.True(t, f.runner.Ready())
	assert.Empty(t, f.events.kinds())
}

func TestIterate_RecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.scanner.panic = true

	assert.NotPanics(t, func() {
		f.runner.iterate(context.Background(), "scan", func(ctx context.Context) { f.runner.ScanOnce(ctx) })
	})
	ev := f.events.last()
	assert.Equal(t, models.EventPipelineError, ev.Kind)
	assert.Equal(t, "scan", ev.Detail)
	assert.Contains(t, ev.Err.Error(), "decoder blew up")
	assert.Equal(t, StateIdle, f.runner.State())
}

func TestIterate_SurvivesCancelledParent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var inner error
	f.runner.iterate(ctx, "monitor", func(ictx context.Context) { inner = ictx.Err() })
	assert.NoError(t, inner)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	f.runner.Start(context.Background())
	f.runner.Start(context.Background())

	assert.Eventually(t, func() bool {
		return f.scanner.polls.Load() >= 2 && f.monitor.sweeps.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	f.runner.Stop()
	f.runner.Stop()

	polls := f.scanner.polls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, f.scanner.polls.Load(), "no scans after Stop")
	assert.True(t, f.runner.Ready())
	assert.Equal(t, t0, f.runner.LastSweep())
}

func TestNextScanInterval(t *testing.T) {
	m := config.MonitoringSettings{ScanInterval: 30 * time.Second, FastScanInterval: 5 * time.Second}

	assert.Equal(t, 30*time.Second, nextScanInterval(0, m))
	assert.Equal(t, 5*time.Second, nextScanInterval(1, m))
	assert.Equal(t, 5*time.Second, nextScanInterval(7, m))
}

func TestNextScanInterval_FollowsSwappedSettings(t *testing.T) {
	initial := config.Defaults()
	initial.Monitoring.ScanInterval = 30 * time.Second
	initial.Monitoring.FastScanInterval = 5 * time.Second
	settings := config.NewStore(&initial, zap.NewNop())

	assert.Equal(t, 30*time.Second, nextScanInterval(0, settings.Current().Monitoring))

	next := initial.Clone()
	next.Monitoring.ScanInterval = 2 * time.Minute
	next.Monitoring.FastScanInterval = 15 * time.Second
	require.NoError(t, settings.Swap(next))

	assert.Equal(t, 2*time.Minute, nextScanInterval(0, settings.Current().Monitoring))
	assert.Equal(t, 15*time.Second, nextScanInterval(3, settings.Current().Monitoring))
}

func TestScanLoop_ReadsIntervalEachTick(t *testing.T) {
	initial := config.Defaults()
	initial.Monitoring.ScanInterval = 10 * time.Millisecond
	initial.Monitoring.FastScanInterval = 10 * time.Millisecond
	initial.Monitoring.MonitorInterval = time.Hour
	initial.Monitoring.SummaryInterval = time.Hour
	settings := config.NewStore(&initial, zap.NewNop())

	scanner := &stubScanner{}
	r := New(scanner, &stubScorer{rejected: map[string]bool{}}, &stubAcquirer{}, &stubMonitor{},
		position.NewStore(), &eventLog{}, settings, zap.NewNop(), WithClock(clock.NewManual(t0)))
	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool { return scanner.polls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	slow := initial.Clone()
	slow.Monitoring.ScanInterval = time.Hour
	require.NoError(t, settings.Swap(slow))

	// a tick already armed with the old interval may still fire once
	time.Sleep(50 * time.Millisecond)
	settled := scanner.polls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, scanner.polls.Load(), "scan waits for the swapped interval")
}

func TestSummaryOnce(t *testing.T) {
	f := newFixture(t)
	f.runner.SummaryOnce()
	assert.Empty(t, f.events.kinds(), "no summary without open positions")

	require.NoError(t, f.store.Insert(models.Position{
		ID: "p", Address: "AAA", Symbol: "AAA", QuoteAmount: 0.1, Quantity: 1000,
		EntryPrice: 1, HighWater: 1.2, LastPrice: 1.2, OpenedAt: t0,
	}))
	f.runner.SummaryOnce()

	ev := f.events.last()
	require.Equal(t, models.EventPortfolioSummary, ev.Kind)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Active)
	assert.InDelta(t, 0.12, ev.Summary.CurrentValue, 1e-9)
}

func TestNew_NilNotifier(t *testing.T) {
	r := New(&stubScanner{}, &stubScorer{}, &stubAcquirer{}, nil, position.NewStore(), nil,
		config.Fixed(&config.Settings{}), nil)
	assert.NotPanics(t, func() {
		r.MonitorOnce(context.Background())
		r.notifier.Notify(models.Event{Kind: models.EventPipelineError})
	})
}
