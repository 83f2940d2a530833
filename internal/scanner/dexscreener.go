package scanner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"solana_sniper/internal/config"
	"solana_sniper/internal/helper"
	"solana_sniper/internal/models"
)

const (
	// DexScreener reports liquidity in USD; these are the rough SOL conversions the bot has always used.
	usdPerSOLLiquidityFloor = 200.0
	usdPerSOLEstimate       = 235.0
)

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
	PriceUsd    string   `json:"priceUsd"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PairCreatedAt int64 `json:"pairCreatedAt"`
}

type dexSearchResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// DexScreener searches recent SOL pairs.
type DexScreener struct {
	http     *http.Client
	settings config.Provider
}

func NewDexScreener(settings config.Provider, client *http.Client) *DexScreener {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DexScreener{http: client, settings: settings}
}

func (d *DexScreener) Name() string { return "dexscreener" }

func (d *DexScreener) Query(ctx context.Context) ([]models.Instrument, error) {
	cfg := d.settings.Current()
	var resp dexSearchResponse
	headers := map[string]string{"User-Agent": "solana-sniper/1.0"}
	if err := helper.GetJSON(ctx, d.http, cfg.APIs.DexScreenerSearchURL, headers, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}

	limit := cfg.Monitoring.MaxNewTokensPerScan
	minUSD := cfg.Trading.MinLiquiditySOL * usdPerSOLLiquidityFloor
	out := make([]models.Instrument, 0, limit)
	for _, p := range resp.Pairs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p.ChainID != "solana" {
			continue
		}
		var token dexToken
		switch {
		case p.QuoteToken.Symbol == "SOL":
			token = p.BaseToken
		case p.BaseToken.Symbol == "SOL":
			token = p.QuoteToken
		default:
			continue
		}
		if token.Address == "" || token.Address == models.WrappedSOLMint {
			continue
		}
		if p.Liquidity.USD < minUSD {
			continue
		}

		inst := models.Instrument{
			Address:      token.Address,
			Symbol:       token.Symbol,
			Name:         token.Name,
			PoolAddress:  p.PairAddress,
			Dex:          "DexScreener/" + p.DexID,
			LiquiditySOL: p.Liquidity.USD / usdPerSOLEstimate,
		}
		if token.Address == p.BaseToken.Address {
			inst.PriceUSD = helper.ParseFloat(p.PriceUsd)
		}
		if p.PairCreatedAt > 0 {
			inst.DiscoveredAt = time.UnixMilli(p.PairCreatedAt)
		}
		out = append(out, inst)
	}
	return out, nil
}
