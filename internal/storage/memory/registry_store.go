package memory

import (
	"context"
	"sort"
	"sync"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// RegistryStore is an in-memory implementation of storage.RegistryStore.
type RegistryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FactorSummary // keyed by factor name
}

// NewRegistryStore creates a new in-memory registry store.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{
		data: make(map[string]*domain.FactorSummary),
	}
}

// Compile-time interface check.
var _ storage.RegistryStore = (*RegistryStore)(nil)

// Upsert inserts or replaces the summary of a factor.
func (s *RegistryStore) Upsert(_ context.Context, summary *domain.FactorSummary) error {
	if summary == nil || summary.Factor == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	summaryCopy := *summary
	s.data[summary.Factor] = &summaryCopy
	return nil
}

// GetByFactor retrieves the summary of a factor. Returns ErrNotFound if not exists.
func (s *RegistryStore) GetByFactor(_ context.Context, factor string) (*domain.FactorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, exists := s.data[factor]
	if !exists {
		return nil, storage.ErrNotFound
	}
	summaryCopy := *summary
	return &summaryCopy, nil
}

// GetAll retrieves all summaries ordered by factor ASC.
func (s *RegistryStore) GetAll(_ context.Context) ([]*domain.FactorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FactorSummary, 0, len(s.data))
	for _, summary := range s.data {
		summaryCopy := *summary
		result = append(result, &summaryCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Factor < result[j].Factor
	})
	return result, nil
}
