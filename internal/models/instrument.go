package models

import "time"

// WrappedSOLMint is the SPL mint of wrapped SOL, the quote asset of every trade.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// Instrument is a discovered token. It is never mutated after discovery.
type Instrument struct {
	Address      string    // mint address, dedup key
	Symbol       string    // display symbol
	Name         string    // display name
	PoolAddress  string    // pair / pool the token was discovered on
	Dex          string    // discovery venue, e.g. "DexScreener/raydium"
	LiquiditySOL float64   // liquidity estimate in SOL
	PriceUSD     float64   // price at discovery, 0 if unknown
	DiscoveredAt time.Time // pool creation or first-seen time
	Synthetic    bool      // produced by a sample strategy, never traded live
}

// Label is the symbol when known, otherwise a shortened address.
func (i Instrument) Label() string {
	if i.Symbol != "" {
		return i.Symbol
	}
	return ShortAddress(i.Address)
}

// ShortAddress keeps the first and last four characters of a long address.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "…" + addr[len(addr)-4:]
}
