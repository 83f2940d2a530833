package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana_sniper/internal/config"
	"solana_sniper/internal/helper"
)

const dexSearchBody = `{"pairs":[
 {"chainId":"solana","dexId":"raydium","pairAddress":"P1","baseToken":{"address":"MintA","name":"Alpha","symbol":"ALP"},
  "quoteToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},"priceUsd":"0.0012","liquidity":{"usd":4700},"pairCreatedAt":1735732800000},
 {"chainId":"solana","dexId":"orca","pairAddress":"P2","baseToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},
  "quoteToken":{"address":"MintB","name":"Beta","symbol":"BET"},"liquidity":{"usd":2000}},
 {"chainId":"solana","dexId":"raydium","pairAddress":"P3","baseToken":{"address":"MintC","symbol":"LOW"},
  "quoteToken":{"symbol":"SOL"},"liquidity":{"usd":100}},
 {"chainId":"ethereum","dexId":"uniswap","pairAddress":"P4","baseToken":{"address":"0xabc","symbol":"ETHY"},
  "quoteToken":{"symbol":"SOL"},"liquidity":{"usd":99999}},
 {"chainId":"solana","dexId":"raydium","pairAddress":"P5","baseToken":{"address":"MintD","symbol":"DOG"},
  "quoteToken":{"symbol":"USDC"},"liquidity":{"usd":99999}}
]}`

func TestDexScreener_FiltersAndConverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dexSearchBody))
	}))
	defer srv.Close()

	s := config.Defaults()
	s.APIs.DexScreenerSearchURL = srv.URL
	s.Trading.MinLiquiditySOL = 10 // 2000 USD floor

	res, err := NewDexScreener(config.Fixed(&s), srv.Client()).Query(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "MintA", res[0].Address)
	assert.Equal(t, "ALP", res[0].Symbol)
	assert.Equal(t, "DexScreener/raydium", res[0].Dex)
	assert.InDelta(t, 20.0, res[0].LiquiditySOL, 1e-9)
	assert.InDelta(t, 0.0012, res[0].PriceUSD, 1e-12)
	assert.Equal(t, time.UnixMilli(1735732800000), res[0].DiscoveredAt)

	assert.Equal(t, "MintB", res[1].Address)
	assert.True(t, res[1].DiscoveredAt.IsZero())
}

func TestDexScreener_RespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dexSearchBody))
	}))
	defer srv.Close()

	s := config.Defaults()
	s.APIs.DexScreenerSearchURL = srv.URL
	s.Trading.MinLiquiditySOL = 0
	s.Monitoring.MaxNewTokensPerScan = 1

	res, err := NewDexScreener(config.Fixed(&s), srv.Client()).Query(context.Background())
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestDexScreener_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := config.Defaults()
	s.APIs.DexScreenerSearchURL = srv.URL
	_, err := NewDexScreener(config.Fixed(&s), srv.Client()).Query(context.Background())
	var se *helper.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}
