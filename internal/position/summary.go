package position

import (
	"time"

	"github.com/shopspring/decimal"

	"solana_sniper/internal/models"
)

// Summarize aggregates positions valued at their last observed price.
func Summarize(list []models.Position, at time.Time) models.PortfolioSummary {
	out := models.PortfolioSummary{At: at, Active: len(list)}
	if len(list) == 0 {
		return out
	}

	invested := decimal.Zero
	value := decimal.Zero
	first := true
	for _, p := range list {
		invested = invested.Add(decimal.NewFromFloat(p.QuoteAmount))
		value = value.Add(decimal.NewFromFloat(p.Value()))

		_, pct := p.PnL()
		switch {
		case pct > 0:
			out.Winning++
		case pct < 0:
			out.Losing++
		}
		if p.Simulated || p.Synthetic {
			out.SimulatedActive++
		}

		label := models.Instrument{Address: p.Address, Symbol: p.Symbol}.Label()
		if first || pct > out.BestPnLPct {
			out.BestPerformer, out.BestPnLPct = label, pct
		}
		if first || pct < out.WorstPnLPct {
			out.WorstPerformer, out.WorstPnLPct = label, pct
		}
		first = false
	}

	pnl := value.Sub(invested)
	out.Invested = invested.InexactFloat64()
	out.CurrentValue = value.InexactFloat64()
	out.PnL = pnl.InexactFloat64()
	if invested.IsPositive() {
		out.PnLPct = pnl.Div(invested).InexactFloat64()
	}
	return out
}
