package memory

import (
	"context"
	"sort"
	"sync"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// FactorValueStore is an in-memory implementation of storage.FactorValueStore.
type FactorValueStore struct {
	mu   sync.RWMutex
	data map[string][]domain.FactorValue // keyed by factor name
}

// NewFactorValueStore creates a new in-memory factor value store.
func NewFactorValueStore() *FactorValueStore {
	return &FactorValueStore{
		data: make(map[string][]domain.FactorValue),
	}
}

// Compile-time interface check.
var _ storage.FactorValueStore = (*FactorValueStore)(nil)

// Replace swaps all stored values of a factor.
func (s *FactorValueStore) Replace(_ context.Context, factor string, values []*domain.FactorValue) error {
	if factor == "" {
		return storage.ErrInvalidInput
	}

	copies := make([]domain.FactorValue, 0, len(values))
	for _, v := range values {
		if v == nil {
			return storage.ErrInvalidInput
		}
		c := *v
		c.Factor = factor
		copies = append(copies, c)
	}
	sort.SliceStable(copies, func(i, j int) bool {
		if !copies[i].Date.Equal(copies[j].Date) {
			return copies[i].Date.Before(copies[j].Date)
		}
		return copies[i].Ticker < copies[j].Ticker
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[factor] = copies
	return nil
}

// GetByFactor retrieves values of a factor ordered by date ASC, ticker ASC.
func (s *FactorValueStore) GetByFactor(_ context.Context, factor string) ([]*domain.FactorValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, exists := s.data[factor]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.FactorValue, len(values))
	for i := range values {
		c := values[i]
		result[i] = &c
	}
	return result, nil
}

// Factors lists stored factor names in ascending order.
func (s *FactorValueStore) Factors(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
