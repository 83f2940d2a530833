package scorer

import (
	"context"
	"errors"
	"hash/fnv"

	"solana_sniper/internal/models"
)

type scenario struct {
	name  string
	facts TokenFacts
	sells bool
}

// scenarios are picked by address hash into ten buckets, two buckets each.
var scenarios = []scenario{
	{"all pass", TokenFacts{true, true, 0.85, 0, 0.18, "synthetic"}, true},
	{"holder concentration", TokenFacts{true, true, 0.75, 0.01, 0.45, "synthetic"}, true},
	{"insufficient lp lock", TokenFacts{true, true, 0.45, 0.02, 0.25, "synthetic"}, true},
	{"high tax", TokenFacts{true, true, 0.80, 0.08, 0.22, "synthetic"}, true},
	{"multiple failures", TokenFacts{false, true, 0.30, 0.12, 0.60, "synthetic"}, false},
}

var errSyntheticUnsellable = errors.New("synthetic scenario: no sell route")

// SyntheticFacts scores sample instruments with a fixed scenario derived from the address,
// so the same address always gets the same verdict.
type SyntheticFacts struct{}

func NewSyntheticFacts() *SyntheticFacts { return &SyntheticFacts{} }

func (SyntheticFacts) Facts(ctx context.Context, address string) (TokenFacts, error) {
	return scenarioFor(address).facts, nil
}

func (SyntheticFacts) CanSell(ctx context.Context, inst models.Instrument) error {
	if !scenarioFor(inst.Address).sells {
		return errSyntheticUnsellable
	}
	return nil
}

// Scenario names the bucket an address falls in.
func (SyntheticFacts) Scenario(address string) string {
	return scenarioFor(address).name
}

func scenarioFor(address string) scenario {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	return scenarios[(h.Sum32()%10)/2]
}
