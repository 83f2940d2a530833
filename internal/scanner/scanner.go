package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana_sniper/internal/clock"
	"solana_sniper/internal/config"
	"solana_sniper/internal/metrics"
	"solana_sniper/internal/models"
)

// ErrDiscovery wraps every discovery failure. It is never fatal to the caller.
var ErrDiscovery = errors.New("discovery failed")

// Source is one discovery backend. Query returns the raw candidates of a single lookup.
type Source interface {
	Name() string
	Query(ctx context.Context) ([]models.Instrument, error)
}

// SampleStrategy produces synthetic instruments for exercising the pipeline without real listings.
type SampleStrategy interface {
	Generate(now time.Time) []models.Instrument
}

// Scanner turns source lookups into never-seen, fresh candidates.
// It is owned by a single loop; seen is not guarded.
type Scanner struct {
	source   Source
	sample   SampleStrategy
	settings config.Provider
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics

	seen map[string]struct{}
}

type Option func(*Scanner)

// WithSampleStrategy enables synthetic candidates when the source has nothing usable.
func WithSampleStrategy(s SampleStrategy) Option {
	return func(sc *Scanner) { sc.sample = s }
}

func WithClock(c clock.Clock) Option {
	return func(sc *Scanner) { sc.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(sc *Scanner) { sc.metrics = m }
}

func New(source Source, settings config.Provider, log *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		source:   source,
		settings: settings,
		clock:    clock.System{},
		log:      log,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Poll runs one discovery cycle.
func (s *Scanner) Poll(ctx context.Context) ([]models.Instrument, error) {
	cfg := s.settings.Current()
	started := time.Now()

	qctx, cancel := context.WithTimeout(ctx, cfg.APIs.DiscoveryTimeout)
	raw, err := s.source.Query(qctx)
	cancel()
	if err != nil {
		s.metrics.RecordScan("error", time.Since(started))
		return nil, fmt.Errorf("%w: %s: %v", ErrDiscovery, s.source.Name(), err)
	}

	now := s.clock.Now()
	out := s.accept(raw, now, cfg.Monitoring.MaxInstrumentAge)
	s.metrics.RecordDiscovered(s.source.Name(), len(out))

	if len(out) == 0 && s.sample != nil {
		out = s.accept(s.sample.Generate(now), now, cfg.Monitoring.MaxInstrumentAge)
		if len(out) > 0 {
			s.log.Debug("sample strategy produced candidates", zap.Int("count", len(out)))
			s.metrics.RecordDiscovered("sample", len(out))
		}
	}

	result := "empty"
	if len(out) > 0 {
		result = "ok"
	}
	s.metrics.RecordScan(result, time.Since(started))
	return out, nil
}

// accept drops stale and already-seen instruments. Stale ones are not remembered.
func (s *Scanner) accept(raw []models.Instrument, now time.Time, maxAge time.Duration) []models.Instrument {
	var out []models.Instrument
	for _, inst := range raw {
		if inst.Address == "" {
			continue
		}
		if inst.DiscoveredAt.IsZero() {
			inst.DiscoveredAt = now
		}
		if maxAge > 0 && now.Sub(inst.DiscoveredAt) > maxAge {
			continue
		}
		if _, ok := s.seen[inst.Address]; ok {
			continue
		}
		s.seen[inst.Address] = struct{}{}
		out = append(out, inst)
	}
	return out
}

// Seen reports how many distinct instruments were emitted so far.
func (s *Scanner) Seen() int {
	return len(s.seen)
}

func (s *Scanner) SourceName() string {
	return s.source.Name()
}
