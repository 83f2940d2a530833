package position

import (
	"errors"
	"sort"
	"sync"

	"solana_sniper/internal/models"
)

var (
	ErrDuplicate = errors.New("position already open")
	ErrNotFound  = errors.New("position not found")
)

// Store owns the open positions keyed by instrument address. Every access goes through one mutex,
// so no reader sees a half-updated Position.
type Store struct {
	mu        sync.Mutex
	positions map[string]*models.Position
}

func NewStore() *Store {
	return &Store{positions: make(map[string]*models.Position)}
}

// Insert fails with ErrDuplicate when the address is already held; the existing position is untouched.
func (s *Store) Insert(p models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.Address]; ok {
		return ErrDuplicate
	}
	cp := p
	s.positions[p.Address] = &cp
	return nil
}

// WithEach runs fn on every position under the store lock. fn must not call back into the store.
func (s *Store) WithEach(fn func(p *models.Position)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, addr := range s.sortedKeys() {
		fn(s.positions[addr])
	}
}

// Update runs fn on one position under the store lock.
func (s *Store) Update(addr string, fn func(p *models.Position)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[addr]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	return nil
}

func (s *Store) Remove(addr string) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[addr]
	if !ok {
		return models.Position{}, ErrNotFound
	}
	delete(s.positions, addr)
	return *p, nil
}

func (s *Store) Get(addr string) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[addr]
	if !ok {
		return models.Position{}, ErrNotFound
	}
	return *p, nil
}

func (s *Store) Has(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.positions[addr]
	return ok
}

// List returns copies ordered by open time.
func (s *Store) List() []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Address < out[j].Address
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.positions))
	for k := range s.positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
