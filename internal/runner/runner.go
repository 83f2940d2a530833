// Package runner drives the scan → score → acquire loop and the exit monitor loop.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/executor"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/models"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
)

// State is the scan loop stage, exposed for health reporting.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateAnalyzing
	StateAcquiring
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateAnalyzing:
		return "analyzing"
	case StateAcquiring:
		return "acquiring"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// iterationBudget bounds one loop iteration once shutdown has begun.
const iterationBudget = 2 * time.Minute

type Scanner interface {
	Poll(ctx context.Context) ([]models.Instrument, error)
	SourceName() string
}

type Scorer interface {
	Evaluate(ctx context.Context, inst models.Instrument) models.EligibilityReport
}

type Acquirer interface {
	Acquire(ctx context.Context, inst models.Instrument, quoteSOL, maxSlippage float64) (models.Fill, error)
}

type Monitor interface {
	Sweep(ctx context.Context)
	MarkEntry(ctx context.Context, p *models.Position)
}

type Runner struct {
	scanner  Scanner
	scorer   Scorer
	acquirer Acquirer
	monitor  Monitor
	store    *position.Store
	notifier notify.Notifier
	settings config.Provider
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	newID    func() string
	scanOnly bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	state     atomic.Int32
	ready     atomic.Bool
	lastScan  atomic.Int64
	lastSweep atomic.Int64
}

type Option func(*Runner)

func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithIDs replaces the position ID generator.
func WithIDs(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// ScanOnly scores candidates without acquiring them.
func ScanOnly() Option {
	return func(r *Runner) { r.scanOnly = true }
}

func New(
	scanner Scanner,
	scorer Scorer,
	acquirer Acquirer,
	monitor Monitor,
	store *position.Store,
	notifier notify.Notifier,
	settings config.Provider,
	log *zap.Logger,
	opts ...Option,
) *Runner {
	r := &Runner{
		scanner:  scanner,
		scorer:   scorer,
		acquirer: acquirer,
		monitor:  monitor,
		store:    store,
		notifier: notifier,
		settings: settings,
		clock:    clock.System{},
		log:      log,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.notifier == nil {
		r.notifier = notify.Func(func(models.Event) {})
	}
	return r
}

// Start launches the scan, monitor and summary loops and returns immediately.
func (r *Runner) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.running = true

	cfg := r.settings.Current()
	r.log.Info("runner started",
		zap.String("source", r.scanner.SourceName()),
		zap.Bool("simulation", cfg.Trading.SimulationMode),
		zap.Bool("scan_only", r.scanOnly),
		zap.Int("open_positions", r.store.Len()))

	r.wg.Add(1)
	go r.scanLoop(ctx)
	if r.monitor != nil {
		r.wg.Add(1)
		go r.monitorLoop(ctx)
	}
	r.wg.Add(1)
	go r.summaryLoop(ctx)
}

// Stop cancels the loops and waits for in-flight iterations to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("runner stopped", zap.Int("open_positions", r.store.Len()))
}

func (r *Runner) scanLoop(ctx context.Context) {
	defer r.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		var eligible int
		r.iterate(ctx, "scan", func(ictx context.Context) {
			eligible = r.ScanOnce(ictx)
		})

		timer.Reset(nextScanInterval(eligible, r.settings.Current().Monitoring))
	}
}

// nextScanInterval shortens the wait while the last scan still found candidates.
func nextScanInterval(eligible int, m config.MonitoringSettings) time.Duration {
	if eligible > 0 {
		return m.FastScanInterval
	}
	return m.ScanInterval
}

func (r *Runner) monitorLoop(ctx context.Context) {
	defer r.wg.Done()
	timer := time.NewTimer(r.settings.Current().Monitoring.MonitorInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		r.iterate(ctx, "monitor", r.MonitorOnce)
		timer.Reset(r.settings.Current().Monitoring.MonitorInterval)
	}
}

func (r *Runner) summaryLoop(ctx context.Context) {
	defer r.wg.Done()
	timer := time.NewTimer(r.settings.Current().Monitoring.SummaryInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		r.iterate(ctx, "summary", func(context.Context) { r.SummaryOnce() })
		timer.Reset(r.settings.Current().Monitoring.SummaryInterval)
	}
}

// iterate runs one loop body. Cancelling ctx does not abort a started body, which gets a
// bounded context of its own. Panics are reported and the loop carries on.
func (r *Runner) iterate(ctx context.Context, loop string, fn func(context.Context)) {
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), iterationBudget)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			r.state.Store(int32(StateIdle))
			err := fmt.Errorf("panic in %s loop: %v", loop, p)
			r.metrics.RecordPipelineError(loop)
			r.log.Error("pipeline iteration panicked",
				zap.String("loop", loop), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			r.notifier.Notify(models.Event{Kind: models.EventPipelineError, At: r.clock.Now(), Detail: loop, Err: err})
		}
	}()
	fn(ictx)
}

// ScanOnce polls discovery once and works every new candidate through scoring and acquisition.
// It returns the number of eligible candidates.
func (r *Runner) ScanOnce(ctx context.Context) int {
	cfg := r.settings.Current()
	r.setState(StateScanning)
	defer r.setState(StateIdle)

	candidates, err := r.scanner.Poll(ctx)
	r.lastScan.Store(r.clock.Now().UnixNano())
	r.ready.Store(true)
	if err != nil {
		r.metrics.RecordPipelineError("scan")
		r.log.Warn("discovery poll failed", zap.Error(err))
		return 0
	}

	eligible := 0
	for _, inst := range candidates {
		log := r.log.With(zap.String("address", inst.Address), zap.String("symbol", inst.Symbol))
		if r.store.Has(inst.Address) {
			r.metrics.RecordSkip("held")
			continue
		}
		if !r.scanOnly && r.store.Len() >= cfg.Trading.MaxPositions {
			r.metrics.RecordSkip("max_positions")
			log.Debug("position limit reached, skipping", zap.Int("max", cfg.Trading.MaxPositions))
			continue
		}

		r.setState(StateAnalyzing)
		report := r.scorer.Evaluate(ctx, inst)
		r.metrics.RecordVerdict(report.Eligible(), report.Failed())
		if !report.Eligible() {
			r.setState(StateRejected)
			log.Info("candidate rejected",
				zap.Int("passed", report.PassedCount()),
				zap.Strings("failed", report.Failed()),
				zap.Bool("synthetic", inst.Synthetic))
			continue
		}
		eligible++
		if r.scanOnly {
			log.Info("candidate eligible", zap.String("dex", inst.Dex), zap.Float64("liquidity_sol", inst.LiquiditySOL))
			continue
		}

		r.setState(StateAcquiring)
		r.acquire(ctx, cfg, inst, report)
	}
	return eligible
}

func (r *Runner) acquire(ctx context.Context, cfg *config.Settings, inst models.Instrument, report models.EligibilityReport) {
	log := r.log.With(zap.String("address", inst.Address), zap.String("symbol", inst.Symbol))

	fill, err := r.acquirer.Acquire(ctx, inst, cfg.Trading.PositionSizeSOL, cfg.Trading.MaxSlippage)
	if err != nil {
		class := executor.Classify(err)
		r.metrics.RecordAcquisition(class)
		log.Warn("acquisition failed", zap.String("class", class), zap.Error(err))
		r.notifier.Notify(models.Event{
			Kind:       models.EventAcquisitionFailed,
			At:         r.clock.Now(),
			Instrument: inst,
			Report:     &report,
			Err:        err,
		})
		return
	}

	openedAt := fill.At
	if openedAt.IsZero() {
		openedAt = r.clock.Now()
	}
	pos := models.Position{
		ID:          r.newID(),
		Address:     inst.Address,
		Symbol:      inst.Symbol,
		OpenedAt:    openedAt,
		QuoteAmount: fill.InputAmount,
		Quantity:    fill.OutputAmount,
		EntryPrice:  fill.Price,
		HighWater:   fill.Price,
		Synthetic:   inst.Synthetic,
		Simulated:   fill.Simulated,
	}
	if r.monitor != nil {
		r.monitor.MarkEntry(ctx, &pos)
	}

	if err := r.store.Insert(pos); err != nil {
		r.metrics.RecordAcquisition("reconciliation")
		log.Error("filled but could not record the position, manual reconciliation required",
			zap.Float64("sol", fill.InputAmount),
			zap.Float64("tokens", fill.OutputAmount),
			zap.String("signature", fill.Signature),
			zap.Error(err))
		r.notifier.Notify(models.Event{
			Kind:       models.EventReconciliationError,
			At:         r.clock.Now(),
			Instrument: inst,
			Position:   pos,
			Fill:       fill,
			Report:     &report,
			Fatal:      true,
			Err:        err,
		})
		return
	}

	r.metrics.RecordAcquisition("ok")
	r.metrics.SetOpenPositions(r.store.Len())
	log.Info("position opened",
		zap.String("id", pos.ID),
		zap.Float64("sol", fill.InputAmount),
		zap.Float64("tokens", fill.OutputAmount),
		zap.Float64("slippage", fill.SlippageFraction),
		zap.String("endpoint", fill.Endpoint),
		zap.Bool("simulated", fill.Simulated))
	r.notifier.Notify(models.Event{
		Kind:       models.EventAcquisitionSucceeded,
		At:         r.clock.Now(),
		Instrument: inst,
		Position:   pos,
		Fill:       fill,
		Report:     &report,
	})
}

// MonitorOnce runs one exit monitor sweep.
func (r *Runner) MonitorOnce(ctx context.Context) {
	if r.monitor == nil {
		return
	}
	r.monitor.Sweep(ctx)
	r.lastSweep.Store(r.clock.Now().UnixNano())
}

// SummaryOnce reports the portfolio when at least one position is open.
func (r *Runner) SummaryOnce() {
	list := r.store.List()
	if len(list) == 0 {
		return
	}
	s := position.Summarize(list, r.clock.Now())
	r.notifier.Notify(models.Event{Kind: models.EventPortfolioSummary, At: s.At, Summary: &s})
}

func (r *Runner) setState(s State) { r.state.Store(int32(s)) }

func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) StateName() string { return r.State().String() }

// Ready turns true after the first completed scan.
func (r *Runner) Ready() bool { return r.ready.Load() }

func (r *Runner) LastScan() time.Time { return unixNano(r.lastScan.Load()) }

func (r *Runner) LastSweep() time.Time { return unixNano(r.lastSweep.Load()) }

func (r *Runner) OpenPositions() int { return r.store.Len() }

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
