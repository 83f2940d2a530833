package executor

import (
	"solana_sniper/internal/helper"
	"solana_sniper/internal/models"
)

// simulatedTokensPerSOL is the fixed rate of every simulated buy.
const simulatedTokensPerSOL = 1_000_000

func (e *Executor) simulateBuy(inst models.Instrument, quoteSOL float64) models.Fill {
	tokens := quoteSOL * simulatedTokensPerSOL
	return models.Fill{
		Address:      inst.Address,
		Side:         models.SideBuy,
		InputAmount:  quoteSOL,
		OutputAmount: tokens,
		Price:        quoteSOL / tokens,
		Endpoint:     "simulation",
		Route:        "simulated",
		Simulated:    true,
		At:           e.clock.Now(),
	}
}

// simulateSell values the sold share at the position's last known price.
func (e *Executor) simulateSell(pos models.Position, sellFraction float64) models.Fill {
	tokens := float64(sellAmount(pos.Quantity, sellFraction))
	sol := pos.Value() * sellFraction
	f := models.Fill{
		Address:      pos.Address,
		Side:         models.SideSell,
		InputAmount:  tokens,
		OutputAmount: sol,
		Endpoint:     "simulation",
		Route:        "simulated",
		Simulated:    true,
		At:           e.clock.Now(),
	}
	if tokens > 0 {
		f.Price = sol / tokens
	}
	return f
}

// sellAmount is the raw token amount for a fraction; a full exit sells everything.
func sellAmount(quantity, fraction float64) uint64 {
	if fraction >= 1 {
		return helper.RawUnits(quantity)
	}
	return helper.RawUnits(helper.FractionOf(quantity, fraction))
}
