package scanner

import (
	"math/rand"
	"time"

	"solana_sniper/internal/models"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var sampleTokens = []struct {
	Symbol    string
	Ticker    string
	Liquidity float64
}{
	{"PEPE2025", "PEPE", 25.5},
	{"MOONDOG", "MDOG", 18.2},
	{"SOLBULL", "BULL", 32.1},
	{"DIAMOND", "DIAM", 12.8},
	{"ROCKET", "RCKT", 41.3},
}

// SampleGenerator emits each sample token with a fixed probability per call, from a seeded source.
// Everything it produces is marked Synthetic.
type SampleGenerator struct {
	rnd         *rand.Rand
	probability float64
}

func NewSampleGenerator(seed int64, probability float64) *SampleGenerator {
	return &SampleGenerator{
		rnd:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

func (g *SampleGenerator) Generate(now time.Time) []models.Instrument {
	var out []models.Instrument
	for _, t := range sampleTokens {
		if g.rnd.Float64() >= g.probability {
			continue
		}
		addr := g.address()
		out = append(out, models.Instrument{
			Address:      addr,
			Symbol:       t.Symbol,
			Name:         t.Ticker,
			PoolAddress:  "sample-" + addr[:8],
			Dex:          "Sample-" + t.Symbol,
			LiquiditySOL: t.Liquidity,
			DiscoveredAt: now,
			Synthetic:    true,
		})
	}
	return out
}

func (g *SampleGenerator) address() string {
	b := make([]byte, 44)
	for i := range b {
		b[i] = base58Alphabet[g.rnd.Intn(len(base58Alphabet))]
	}
	return string(b)
}
