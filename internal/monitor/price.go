package monitor

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/helper"
	"solana_sniper/internal/metrics"
)

var ErrPriceUnavailable = errors.New("price unavailable")

// PriceSource returns the current price of a token in SOL.
type PriceSource interface {
	Price(ctx context.Context, address string) (float64, error)
}

const (
	solUSDCacheTTL  = 5 * time.Minute
	priceCacheItems = 10_000
)

type cachedPrice struct {
	value float64
	at    time.Time
}

// priceCache is a bounded store of the last known price per token. Freshness is judged by the
// caller so an expired entry can still serve as a stale fallback.
type priceCache struct {
	cache *ristretto.Cache
}

func newPriceCache(maxItems int64) (*priceCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &priceCache{cache: c}, nil
}

func (c *priceCache) get(key string) (cachedPrice, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return cachedPrice{}, false
	}
	p, ok := v.(cachedPrice)
	return p, ok
}

func (c *priceCache) set(key string, p cachedPrice) {
	c.cache.Set(key, p, 1)
	c.cache.Wait()
}

type dexPair struct {
	PriceNative string `json:"priceNative"`
	PriceUsd    string `json:"priceUsd"`
	QuoteToken  struct {
		Symbol string `json:"symbol"`
	} `json:"quoteToken"`
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type coinGeckoResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// DexScreenerPrices marks tokens from the DexScreener tokens endpoint. SOL-quoted pairs are read
// natively, other pairs are converted through the CoinGecko SOL/USD rate.
type DexScreenerPrices struct {
	http     *http.Client
	settings config.Provider
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	cache    *priceCache

	solMu  sync.Mutex
	solUSD cachedPrice
}

func NewDexScreenerPrices(settings config.Provider, client *http.Client, log *zap.Logger, m *metrics.Metrics, clk clock.Clock) (*DexScreenerPrices, error) {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System{}
	}
	cache, err := newPriceCache(priceCacheItems)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	return &DexScreenerPrices{
		http:     client,
		settings: settings,
		clock:    clk,
		log:      log,
		metrics:  m,
		cache:    cache,
	}, nil
}

// Price serves a cached value younger than PriceCacheTTL, otherwise fetches. A failed fetch falls
// back to the last known value when there is one.
func (d *DexScreenerPrices) Price(ctx context.Context, address string) (float64, error) {
	cfg := d.settings.Current()
	now := d.clock.Now()
	cached, ok := d.cache.get(address)
	if ok && now.Sub(cached.at) < cfg.Monitoring.PriceCacheTTL {
		return cached.value, nil
	}

	price, err := d.fetch(ctx, cfg, address)
	if err != nil {
		d.metrics.RecordPriceMiss()
		if ok {
			d.log.Debug("price fetch failed, serving stale value",
				zap.String("address", address), zap.Duration("age", now.Sub(cached.at)), zap.Error(err))
			return cached.value, nil
		}
		return 0, err
	}
	d.cache.set(address, cachedPrice{value: price, at: now})
	return price, nil
}

func (d *DexScreenerPrices) fetch(ctx context.Context, cfg *config.Settings, address string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.APIs.RequestTimeout)
	defer cancel()

	var resp dexTokensResponse
	if err := helper.GetJSON(ctx, d.http, cfg.APIs.DexScreenerTokensURL+address, nil, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, address, err)
	}
	if len(resp.Pairs) == 0 {
		return 0, fmt.Errorf("%w: %s: no pairs", ErrPriceUnavailable, address)
	}
	for _, p := range resp.Pairs {
		if p.QuoteToken.Symbol == "SOL" {
			if v := helper.ParseFloat(p.PriceNative); v > 0 {
				return v, nil
			}
		}
	}
	usd := helper.ParseFloat(resp.Pairs[0].PriceUsd)
	if usd <= 0 {
		return 0, fmt.Errorf("%w: %s: no usd price", ErrPriceUnavailable, address)
	}
	rate, err := d.SOLUSD(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, address, err)
	}
	return usd / rate, nil
}

// SOLUSD is the SOL/USD rate, refreshed every five minutes. When CoinGecko fails the last known
// rate stands in; before the first success there is no rate and an error is returned.
func (d *DexScreenerPrices) SOLUSD(ctx context.Context) (float64, error) {
	d.solMu.Lock()
	defer d.solMu.Unlock()

	now := d.clock.Now()
	if d.solUSD.value > 0 && now.Sub(d.solUSD.at) < solUSDCacheTTL {
		return d.solUSD.value, nil
	}

	cfg := d.settings.Current()
	ctx, cancel := context.WithTimeout(ctx, cfg.APIs.RequestTimeout)
	defer cancel()
	var resp coinGeckoResponse
	err := helper.GetJSON(ctx, d.http, cfg.APIs.CoinGeckoURL, nil, &resp)
	if err == nil && resp.Solana.USD > 0 {
		d.solUSD = cachedPrice{value: resp.Solana.USD, at: now}
		return d.solUSD.value, nil
	}
	if err == nil {
		err = errors.New("missing solana.usd")
	}
	if d.solUSD.value > 0 {
		d.log.Warn("SOL/USD refresh failed, keeping last rate", zap.Float64("rate", d.solUSD.value), zap.Error(err))
		return d.solUSD.value, nil
	}
	return 0, fmt.Errorf("sol/usd rate: %w", err)
}

// SimulatedPrices walks a deterministic random price path per token. Only synthetic and
// simulated positions are marked with it.
type SimulatedPrices struct {
	mu     sync.Mutex
	start  float64
	drift  float64
	vol    float64
	states map[string]*walk
}

type walk struct {
	price float64
	rnd   *rand.Rand
}

// NewSimulatedPrices starts every path at start and moves it by drift +/- vol per observation.
func NewSimulatedPrices(start, drift, vol float64) *SimulatedPrices {
	return &SimulatedPrices{start: start, drift: drift, vol: vol, states: make(map[string]*walk)}
}

func (s *SimulatedPrices) Price(_ context.Context, address string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.states[address]
	if !ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(address))
		w = &walk{price: s.start, rnd: rand.New(rand.NewSource(int64(h.Sum64())))}
		s.states[address] = w
		return w.price, nil
	}
	step := s.drift + s.vol*(2*w.rnd.Float64()-1)
	w.price *= 1 + step
	if w.price <= 0 {
		w.price = s.start * 1e-3
	}
	return w.price, nil
}
