package notify

import (
	"fmt"
	"strings"
	"time"

	"solana_sniper/internal/models"
)

func sol(v float64) string { return fmt.Sprintf("%.4f SOL", v) }

func pct(frac float64) string { return fmt.Sprintf("%+.2f%%", frac*100) }

func mode(simulated bool) string {
	if simulated {
		return "🧪 simulated"
	}
	return "live"
}

func emojiFor(frac float64) string {
	if frac >= 0 {
		return "🟢"
	}
	return "🔴"
}

// FormatEvent renders ev as a plain-text alert.
func FormatEvent(ev models.Event) string {
	var b strings.Builder
	switch ev.Kind {
	case models.EventAcquisitionSucceeded:
		f := ev.Fill
		fmt.Fprintf(&b, "🚀 BUY %s\n", ev.Instrument.Label())
		fmt.Fprintf(&b, "Mint: %s\n", ev.Instrument.Address)
		fmt.Fprintf(&b, "Spent: %s\n", sol(f.InputAmount))
		fmt.Fprintf(&b, "Received: %.0f tokens\n", f.OutputAmount)
		fmt.Fprintf(&b, "Slippage: %.2f%%\n", f.SlippageFraction*100)
		fmt.Fprintf(&b, "Route: %s via %s (%s)", f.Route, f.Endpoint, mode(f.Simulated))
		if f.Signature != "" {
			fmt.Fprintf(&b, "\nTx: %s", f.Signature)
		}

	case models.EventAcquisitionFailed:
		fmt.Fprintf(&b, "⚠️ BUY FAILED %s\n", ev.Instrument.Label())
		fmt.Fprintf(&b, "Mint: %s\n", ev.Instrument.Address)
		fmt.Fprintf(&b, "Error: %s", errText(ev.Err))

	case models.EventExitTriggered:
		p := ev.Position
		fmt.Fprintf(&b, "%s SELL %s (%s)\n", emojiFor(ev.PnLPct), label(p), ev.Trigger)
		fmt.Fprintf(&b, "Sold: %.0f tokens for %s\n", ev.Fill.InputAmount, sol(ev.Fill.OutputAmount))
		fmt.Fprintf(&b, "PnL: %s (%s)\n", sol(ev.PnL), pct(ev.PnLPct))
		fmt.Fprintf(&b, "Held: %s", p.Age(ev.At).Round(time.Second))
		if ev.Residual > 0 {
			fmt.Fprintf(&b, "\nLeft in wallet: %.0f tokens", ev.Residual)
		}
		fmt.Fprintf(&b, "\nMode: %s", mode(ev.Fill.Simulated))

	case models.EventExitFailed:
		p := ev.Position
		if ev.Fatal {
			fmt.Fprintf(&b, "🛑 EXIT STUCK %s (%s)\n", label(p), ev.Trigger)
			fmt.Fprintf(&b, "Attempts: %d, manual intervention needed\n", p.ExitAttempts)
		} else {
			fmt.Fprintf(&b, "⚠️ EXIT FAILED %s (%s)\n", label(p), ev.Trigger)
			fmt.Fprintf(&b, "Attempt: %d\n", p.ExitAttempts)
		}
		fmt.Fprintf(&b, "Mint: %s\n", p.Address)
		fmt.Fprintf(&b, "Error: %s", errText(ev.Err))

	case models.EventReconciliationError:
		fmt.Fprintf(&b, "🛑 RECONCILIATION %s\n", ev.Instrument.Label())
		fmt.Fprintf(&b, "Filled %s for %.0f tokens but the position was not recorded\n",
			sol(ev.Fill.InputAmount), ev.Fill.OutputAmount)
		fmt.Fprintf(&b, "Mint: %s\n", ev.Instrument.Address)
		fmt.Fprintf(&b, "Error: %s", errText(ev.Err))

	case models.EventPipelineError:
		fmt.Fprintf(&b, "❗️ PIPELINE ERROR %s\n", ev.Detail)
		fmt.Fprintf(&b, "Error: %s", errText(ev.Err))

	case models.EventPortfolioSummary:
		if ev.Summary != nil {
			b.WriteString(FormatSummary(*ev.Summary))
		}

	default:
		fmt.Fprintf(&b, "%s %s", ev.Kind, ev.Detail)
	}
	return b.String()
}

// FormatSummary renders the portfolio summary.
func FormatSummary(s models.PortfolioSummary) string {
	if s.Active == 0 {
		return "📭 No open positions"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Portfolio (%d open", s.Active)
	if s.SimulatedActive > 0 {
		fmt.Fprintf(&b, ", %d simulated", s.SimulatedActive)
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Invested: %s\n", sol(s.Invested))
	fmt.Fprintf(&b, "Value: %s\n", sol(s.CurrentValue))
	fmt.Fprintf(&b, "%s PnL: %s (%s)\n", emojiFor(s.PnLPct), sol(s.PnL), pct(s.PnLPct))
	fmt.Fprintf(&b, "Winning/Losing: %d/%d\n", s.Winning, s.Losing)
	fmt.Fprintf(&b, "Best: %s %s\n", s.BestPerformer, pct(s.BestPnLPct))
	fmt.Fprintf(&b, "Worst: %s %s", s.WorstPerformer, pct(s.WorstPnLPct))
	return b.String()
}

// FormatPositions lists open positions, one line each.
func FormatPositions(list []models.Position, now time.Time) string {
	if len(list) == 0 {
		return "📭 No open positions"
	}
	var b strings.Builder
	b.WriteString("📈 Open positions:\n")
	for _, p := range list {
		pnl, frac := p.PnL()
		fmt.Fprintf(&b, "- %s %s %s (%s) age %s",
			emojiFor(frac), label(p), sol(pnl), pct(frac), p.Age(now).Round(time.Minute))
		if p.ExitAttempts > 0 {
			fmt.Fprintf(&b, " exit attempts %d", p.ExitAttempts)
		}
		if p.Simulated || p.Synthetic {
			b.WriteString(" 🧪")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func label(p models.Position) string {
	return models.Instrument{Address: p.Address, Symbol: p.Symbol}.Label()
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
