package memory

import (
	"context"
	"sort"
	"sync"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Record // keyed by dataset name
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		data: make(map[string][]*domain.Record),
	}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// InsertBulk appends records to a dataset.
func (s *DatasetStore) InsertBulk(_ context.Context, dataset string, records []*domain.Record) error {
	if dataset == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store copies to prevent external mutation
	for _, r := range records {
		s.data[dataset] = append(s.data[dataset], r.Clone())
	}
	if _, ok := s.data[dataset]; !ok {
		s.data[dataset] = nil
	}
	return nil
}

// Load retrieves all records of a dataset ordered by date ASC, ticker ASC.
func (s *DatasetStore) Load(_ context.Context, dataset string) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, exists := s.data[dataset]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.Record, len(records))
	for i, r := range records {
		result[i] = r.Clone()
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// Datasets lists dataset names in ascending order.
func (s *DatasetStore) Datasets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
