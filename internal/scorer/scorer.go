package scorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/models"
)

// TokenFacts are the raw safety signals of a mint. Fractions are in [0, 1].
type TokenFacts struct {
	MintAuthorityRevoked   bool
	FreezeAuthorityRevoked bool
	LPLockedFraction       float64
	TransferTaxFraction    float64
	TopHoldersFraction     float64
	Source                 string
}

type FactsSource interface {
	Facts(ctx context.Context, address string) (TokenFacts, error)
}

// SellProbe checks that the token can be sold back for SOL.
type SellProbe interface {
	CanSell(ctx context.Context, inst models.Instrument) error
}

// SyntheticStrategy answers both questions for sample instruments.
type SyntheticStrategy interface {
	FactsSource
	SellProbe
}

// Scorer evaluates the whole checklist for every instrument, even after an early failure.
type Scorer struct {
	facts     FactsSource
	probe     SellProbe
	synthetic SyntheticStrategy
	settings  config.Provider
	clock     clock.Clock
	log       *zap.Logger
}

type Option func(*Scorer)

// WithSyntheticStrategy scores Synthetic instruments with s. Without it they fail every criterion.
func WithSyntheticStrategy(s SyntheticStrategy) Option {
	return func(sc *Scorer) { sc.synthetic = s }
}

func WithClock(c clock.Clock) Option {
	return func(sc *Scorer) { sc.clock = c }
}

func New(facts FactsSource, probe SellProbe, settings config.Provider, log *zap.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		facts:    facts,
		probe:    probe,
		settings: settings,
		clock:    clock.System{},
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Evaluate gathers facts and runs the sell probe concurrently, then builds a complete report.
func (s *Scorer) Evaluate(ctx context.Context, inst models.Instrument) models.EligibilityReport {
	cfg := s.settings.Current()
	facts, probe := s.sourcesFor(inst)

	ctx, cancel := context.WithTimeout(ctx, cfg.APIs.RequestTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		tf       TokenFacts
		factsErr error
		probeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if facts == nil {
			factsErr = fmt.Errorf("no facts source for synthetic instrument")
			return
		}
		tf, factsErr = facts.Facts(ctx, inst.Address)
	}()
	go func() {
		defer wg.Done()
		if probe == nil {
			probeErr = fmt.Errorf("no sell probe for synthetic instrument")
			return
		}
		probeErr = probe.CanSell(ctx, inst)
	}()
	wg.Wait()

	report := Build(inst.Address, tf, factsErr, probeErr, cfg.Security, s.clock.Now())
	if factsErr != nil {
		s.log.Warn("token facts unavailable", zap.String("address", inst.Address), zap.Error(factsErr))
	}
	return report
}

func (s *Scorer) sourcesFor(inst models.Instrument) (FactsSource, SellProbe) {
	if !inst.Synthetic {
		return s.facts, s.probe
	}
	if s.synthetic == nil {
		return nil, nil
	}
	return s.synthetic, s.synthetic
}

// Build turns facts into the fixed six-criterion report.
func Build(address string, f TokenFacts, factsErr, probeErr error, sec config.SecuritySettings, at time.Time) models.EligibilityReport {
	r := models.EligibilityReport{
		Address:     address,
		Criteria:    make([]models.Criterion, 0, len(models.CriteriaOrder)),
		EvaluatedAt: at,
	}

	if factsErr != nil {
		detail := "facts unavailable: " + factsErr.Error()
		for _, name := range models.CriteriaOrder[:5] {
			r.Criteria = append(r.Criteria, models.Criterion{Name: name, Passed: false, Detail: detail})
		}
	} else {
		r.Criteria = append(r.Criteria,
			boolCriterion(models.CriterionMintAuthority, f.MintAuthorityRevoked),
			boolCriterion(models.CriterionFreezeAuthority, f.FreezeAuthorityRevoked),
			models.Criterion{
				Name:   models.CriterionLPLocked,
				Passed: f.LPLockedFraction > sec.MinLPLocked,
				Value:  f.LPLockedFraction,
				Detail: fmt.Sprintf("%.1f%% burned or locked (need > %.0f%%)", f.LPLockedFraction*100, sec.MinLPLocked*100),
			},
			models.Criterion{
				Name:   models.CriterionTransferTax,
				Passed: f.TransferTaxFraction <= sec.MaxTax,
				Value:  f.TransferTaxFraction,
				Detail: fmt.Sprintf("%.1f%% tax (max %.1f%%)", f.TransferTaxFraction*100, sec.MaxTax*100),
			},
			models.Criterion{
				Name:   models.CriterionTopHolders,
				Passed: f.TopHoldersFraction <= sec.MaxTopHolders,
				Value:  f.TopHoldersFraction,
				Detail: fmt.Sprintf("top holders own %.1f%% (max %.0f%%)", f.TopHoldersFraction*100, sec.MaxTopHolders*100),
			},
		)
	}

	sell := models.Criterion{Name: models.CriterionCanSell, Passed: probeErr == nil, Value: 1, Detail: "sell route available"}
	if probeErr != nil {
		sell.Value = 0
		sell.Detail = "sell probe failed: " + probeErr.Error()
	}
	r.Criteria = append(r.Criteria, sell)
	return r
}

func boolCriterion(name string, revoked bool) models.Criterion {
	c := models.Criterion{Name: name, Passed: revoked, Detail: "revoked"}
	if revoked {
		c.Value = 1
	} else {
		c.Detail = "still set"
	}
	return c
}
