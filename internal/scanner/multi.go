package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solana_sniper/internal/models"
)

// MultiSource queries every source in order and concatenates their results.
// It fails only when every source failed.
type MultiSource struct {
	sources []Source
}

func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

func (m *MultiSource) Name() string {
	names := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (m *MultiSource) Query(ctx context.Context) ([]models.Instrument, error) {
	var (
		out  []models.Instrument
		errs []error
	)
	for _, s := range m.sources {
		res, err := s.Query(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		out = append(out, res...)
	}
	if len(errs) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
