package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/helper"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/models"
	"solana_sniper/internal/position"
)

const (
	opBuy   = "buy"
	opSell  = "sell"
	opProbe = "probe"
)

// Submitter signs and sends the swap behind a quote. It is opaque to the executor.
type Submitter interface {
	Submit(ctx context.Context, q Quote) (signature string, err error)
}

// Holdings answers whether a position is still open.
type Holdings interface {
	Has(address string) bool
}

// Executor acquires and liquidates through ordered quote endpoints, or simulates fills.
type Executor struct {
	settings  config.Provider
	http      *http.Client
	submitter Submitter
	holdings  Holdings
	clock     clock.Clock
	tracer    opentracing.Tracer
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Executor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.http = c }
}

// WithSubmitter turns quotes into real swaps. Without one, live fills are quote-only paper fills.
func WithSubmitter(s Submitter) Option {
	return func(e *Executor) { e.submitter = s }
}

// WithHoldings makes Liquidate refuse positions that are no longer open, before any network call.
func WithHoldings(h Holdings) Option {
	return func(e *Executor) { e.holdings = h }
}

func WithClock(c clock.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

func WithTracer(t opentracing.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func New(settings config.Provider, log *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		settings: settings,
		http:     &http.Client{},
		clock:    clock.System{},
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = opentracing.GlobalTracer()
	}
	return e
}

// Acquire buys inst for quoteSOL, rejecting quotes whose slippage exceeds maxSlippage.
func (e *Executor) Acquire(ctx context.Context, inst models.Instrument, quoteSOL, maxSlippage float64) (models.Fill, error) {
	if quoteSOL <= 0 {
		return models.Fill{}, fmt.Errorf("%w: quote amount %.9f", ErrInvalidAmount, quoteSOL)
	}
	cfg := e.settings.Current()
	if cfg.Trading.SimulationMode || inst.Synthetic {
		return e.simulateBuy(inst, quoteSOL), nil
	}

	req := QuoteRequest{
		InputMint:   models.WrappedSOLMint,
		OutputMint:  inst.Address,
		Amount:      helper.SOLToLamports(quoteSOL),
		SlippageBps: slippageBps(maxSlippage),
	}
	q, err := e.quote(ctx, opBuy, cfg.APIs.QuoteEndpoints, req, maxSlippage, cfg.APIs.QuoteTimeout)
	if err != nil {
		if errors.Is(err, ErrAllEndpointsFailed) && cfg.Trading.FallbackToSimulation {
			e.log.Warn("all quote endpoints failed, falling back to a simulated fill",
				zap.String("address", inst.Address), zap.Error(err))
			return e.simulateBuy(inst, quoteSOL), nil
		}
		return models.Fill{}, err
	}

	sig, err := e.submit(ctx, q)
	if err != nil {
		return models.Fill{}, err
	}
	tokens := float64(q.OutAmount)
	return models.Fill{
		Address:          inst.Address,
		Side:             models.SideBuy,
		InputAmount:      quoteSOL,
		OutputAmount:     tokens,
		Price:            quoteSOL / tokens,
		SlippageFraction: q.RealizedSlippage(),
		Endpoint:         q.Endpoint,
		Route:            q.Route,
		Signature:        sig,
		At:               e.clock.Now(),
	}, nil
}

// Liquidate sells sellFraction of pos for SOL.
func (e *Executor) Liquidate(ctx context.Context, pos models.Position, sellFraction float64) (models.Fill, error) {
	if e.holdings != nil && !e.holdings.Has(pos.Address) {
		return models.Fill{}, fmt.Errorf("liquidate %s: %w", pos.Address, position.ErrNotFound)
	}
	if sellFraction <= 0 || sellFraction > 1 {
		return models.Fill{}, fmt.Errorf("%w: sell fraction %.4f", ErrInvalidAmount, sellFraction)
	}
	cfg := e.settings.Current()
	if cfg.Trading.SimulationMode || pos.Synthetic || pos.Simulated {
		return e.simulateSell(pos, sellFraction), nil
	}

	amount := sellAmount(pos.Quantity, sellFraction)
	if amount == 0 {
		return models.Fill{}, fmt.Errorf("%w: nothing to sell for %s", ErrInvalidAmount, pos.Address)
	}
	req := QuoteRequest{
		InputMint:   pos.Address,
		OutputMint:  models.WrappedSOLMint,
		Amount:      amount,
		SlippageBps: slippageBps(cfg.Trading.MaxSlippage),
	}
	q, err := e.quote(ctx, opSell, cfg.APIs.SellEndpoints, req, cfg.Trading.MaxSlippage, cfg.APIs.QuoteTimeout)
	if err != nil {
		return models.Fill{}, err
	}
	sig, err := e.submit(ctx, q)
	if err != nil {
		return models.Fill{}, err
	}
	sol := helper.LamportsToSOL(q.OutAmount)
	return models.Fill{
		Address:          pos.Address,
		Side:             models.SideSell,
		InputAmount:      float64(amount),
		OutputAmount:     sol,
		Price:            sol / float64(amount),
		SlippageFraction: q.RealizedSlippage(),
		Endpoint:         q.Endpoint,
		Route:            q.Route,
		Signature:        sig,
		At:               e.clock.Now(),
	}, nil
}

// CanSell asks the sell endpoints for a quote on a small amount of inst. Any usable quote passes.
func (e *Executor) CanSell(ctx context.Context, inst models.Instrument) error {
	cfg := e.settings.Current()
	if cfg.Trading.SimulationMode || inst.Synthetic {
		return nil
	}
	req := QuoteRequest{
		InputMint:   inst.Address,
		OutputMint:  models.WrappedSOLMint,
		Amount:      cfg.Security.SellProbeAmount,
		SlippageBps: slippageBps(cfg.Trading.MaxSlippage),
	}
	_, err := e.quote(ctx, opProbe, cfg.APIs.SellEndpoints, req, 1, cfg.APIs.QuoteTimeout)
	return err
}

// quote walks endpoints in order. The first usable quote ends the walk; a quote over the slippage
// bound is returned as ErrSlippageExceeded without trying further endpoints.
func (e *Executor) quote(ctx context.Context, op string, endpoints []string, req QuoteRequest, maxSlippage float64, timeout time.Duration) (Quote, error) {
	if len(endpoints) == 0 {
		return Quote{}, ErrNoEndpoints
	}
	list := append([]string(nil), endpoints...)

	var errs []error
	for _, endpoint := range list {
		q, err := e.attempt(ctx, op, endpoint, req, timeout)
		if err != nil {
			e.log.Debug("quote attempt failed",
				zap.String("op", op), zap.String("endpoint", endpoint),
				zap.String("class", Classify(err)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if s := q.RealizedSlippage(); s > maxSlippage {
			return Quote{}, fmt.Errorf("%w: %.2f%% > %.2f%% at %s", ErrSlippageExceeded, s*100, maxSlippage*100, endpoint)
		}
		return q, nil
	}
	return Quote{}, fmt.Errorf("%s: %w: %w", op, ErrAllEndpointsFailed, errors.Join(errs...))
}

func (e *Executor) submit(ctx context.Context, q Quote) (string, error) {
	if e.submitter == nil {
		return "", nil
	}
	sig, err := e.submitter.Submit(ctx, q)
	if err != nil {
		return "", fmt.Errorf("submit swap via %s: %w", q.Endpoint, err)
	}
	return sig, nil
}
