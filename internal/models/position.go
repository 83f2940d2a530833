package models

import "time"

// Position is an open holding. Only the exit monitor mutates it, and only under the store lock.
//
// EntryPrice, HighWater and LastPrice share the units of the price source that marks the position,
// so value and PnL are derived from their ratio, never from Quantity.
type Position struct {
	ID          string
	Address     string
	Symbol      string
	OpenedAt    time.Time
	QuoteAmount float64 // SOL committed
	Quantity    float64 // tokens held, raw units
	EntryPrice  float64
	HighWater   float64 // max observed price since open
	LastPrice   float64
	LastPriceAt time.Time
	Anchored    bool // EntryPrice came from the price source rather than the fill

	ExitAttempts  int
	LastExitError string
	Synthetic     bool
	Simulated     bool // opened by a simulated fill
}

// Return is the price change since entry as a fraction, 0 without a price.
func (p Position) Return() float64 {
	if p.EntryPrice <= 0 || p.LastPrice <= 0 {
		return 0
	}
	return (p.LastPrice - p.EntryPrice) / p.EntryPrice
}

// Value is the position value in SOL at the last observed price.
func (p Position) Value() float64 {
	return p.QuoteAmount * (1 + p.Return())
}

// PnL returns profit in SOL and as a fraction of the committed amount.
func (p Position) PnL() (float64, float64) {
	r := p.Return()
	return p.QuoteAmount * r, r
}

// Age is the holding time at now.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}
