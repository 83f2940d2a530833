package runner

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/internal/executor"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/monitor"
	"solana_sniper/internal/notify"
	"solana_sniper/internal/position"
	"solana_sniper/internal/scanner"
	"solana_sniper/internal/scorer"
	"solana_sniper/internal/solana"
)

// Simulated price paths start at the simulated fill price and move a few percent per sweep.
const (
	simulatedStartPrice = 1e-6
	simulatedDrift      = 0.002
	simulatedVolatility = 0.08
)

// Pipeline is the set of stage components built from one settings snapshot.
type Pipeline struct {
	Scanner    *scanner.Scanner
	PumpPortal *scanner.PumpPortal
	RPC        *solana.Client
	Scorer     *scorer.Scorer
	Executor   *executor.Executor
	Prices     *monitor.DexScreenerPrices
	Monitor    *monitor.Monitor
}

// NewPipeline wires discovery, scoring, execution and the exit monitor around store.
func NewPipeline(settings config.Provider, store *position.Store, notifier notify.Notifier, m *metrics.Metrics, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := settings.Current()
	httpClient := &http.Client{Timeout: cfg.APIs.RequestTimeout}
	p := &Pipeline{}

	var sources []scanner.Source
	if cfg.APIs.DexScreenerSearchURL != "" {
		sources = append(sources, scanner.NewDexScreener(settings, httpClient))
	}
	if cfg.APIs.PumpPortalEnabled {
		p.PumpPortal = scanner.NewPumpPortal(cfg.APIs.PumpPortalURL, log)
		sources = append(sources, p.PumpPortal)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no discovery source enabled", config.ErrConfiguration)
	}
	var source scanner.Source = sources[0]
	if len(sources) > 1 {
		source = scanner.NewMultiSource(sources...)
	}

	scanOpts := []scanner.Option{scanner.WithMetrics(m)}
	scoreOpts := []scorer.Option{}
	if cfg.Monitoring.EnableSampleTokens {
		scanOpts = append(scanOpts, scanner.WithSampleStrategy(
			scanner.NewSampleGenerator(cfg.Monitoring.SampleSeed, cfg.Monitoring.SampleProbability)))
		scoreOpts = append(scoreOpts, scorer.WithSyntheticStrategy(scorer.NewSyntheticFacts()))
	}
	p.Scanner = scanner.New(source, settings, log.Named("scanner"), scanOpts...)

	p.RPC = solana.NewClient(cfg.Wallet.RPCURL,
		solana.WithTimeout(cfg.APIs.RequestTimeout),
		solana.WithFallbacks(cfg.Wallet.BackupRPCURLs...))

	p.Executor = executor.New(settings, log.Named("executor"),
		executor.WithHTTPClient(httpClient),
		executor.WithHoldings(store),
		executor.WithMetrics(m))

	var facts scorer.FactsSource = scorer.NewRugCheck(cfg.APIs.RugCheckURL, httpClient)
	if cfg.Security.CheckMintOnChain {
		facts = scorer.NewLayeredFacts(facts, scorer.NewMintAccount(p.RPC), log.Named("facts"))
	}
	p.Scorer = scorer.New(facts, p.Executor, settings, log.Named("scorer"), scoreOpts...)

	prices, err := monitor.NewDexScreenerPrices(settings, httpClient, log.Named("prices"), m, nil)
	if err != nil {
		return nil, err
	}
	p.Prices = prices
	p.Monitor = monitor.New(store, prices, p.Executor, notifier, settings, log.Named("monitor"),
		monitor.WithSimulatedPrices(monitor.NewSimulatedPrices(simulatedStartPrice, simulatedDrift, simulatedVolatility)),
		monitor.WithMetrics(m))
	return p, nil
}
