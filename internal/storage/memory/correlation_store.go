package memory

import (
	"context"
	"sort"
	"sync"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// CorrelationStore is an in-memory implementation of storage.CorrelationStore.
type CorrelationStore struct {
	mu      sync.RWMutex
	factors map[string][]domain.CorrelationEntry     // keyed by run_id
	bench   map[string][]domain.BenchmarkCorrelation // keyed by run_id
	runs    []string                                 // insertion order
}

// NewCorrelationStore creates a new in-memory correlation store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		factors: make(map[string][]domain.CorrelationEntry),
		bench:   make(map[string][]domain.BenchmarkCorrelation),
	}
}

// Compile-time interface check.
var _ storage.CorrelationStore = (*CorrelationStore)(nil)

// InsertFactorCorrelations stores the pairwise matrix of a run.
func (s *CorrelationStore) InsertFactorCorrelations(_ context.Context, runID string, entries []*domain.CorrelationEntry) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.factors[runID]; exists {
		return storage.ErrDuplicateKey
	}

	copies := make([]domain.CorrelationEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Left == "" || e.Right == "" {
			return storage.ErrInvalidInput
		}
		c := *e
		c.RunID = runID
		copies = append(copies, c)
	}
	s.factors[runID] = copies
	s.trackRun(runID)
	return nil
}

// InsertBenchmarkCorrelations stores long-short vs benchmark correlations of a run.
func (s *CorrelationStore) InsertBenchmarkCorrelations(_ context.Context, runID string, entries []*domain.BenchmarkCorrelation) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bench[runID]; exists {
		return storage.ErrDuplicateKey
	}

	copies := make([]domain.BenchmarkCorrelation, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Factor == "" || e.Benchmark == "" {
			return storage.ErrInvalidInput
		}
		c := *e
		c.RunID = runID
		copies = append(copies, c)
	}
	s.bench[runID] = copies
	s.trackRun(runID)
	return nil
}

// GetFactorCorrelations retrieves a run's matrix ordered by left ASC, right ASC.
func (s *CorrelationStore) GetFactorCorrelations(_ context.Context, runID string) ([]*domain.CorrelationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.factors[runID]
	result := make([]*domain.CorrelationEntry, len(entries))
	for i := range entries {
		c := entries[i]
		result[i] = &c
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Left != result[j].Left {
			return result[i].Left < result[j].Left
		}
		return result[i].Right < result[j].Right
	})
	return result, nil
}

// GetBenchmarkCorrelations retrieves a run's entries ordered by factor ASC, benchmark ASC.
func (s *CorrelationStore) GetBenchmarkCorrelations(_ context.Context, runID string) ([]*domain.BenchmarkCorrelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.bench[runID]
	result := make([]*domain.BenchmarkCorrelation, len(entries))
	for i := range entries {
		c := entries[i]
		result[i] = &c
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Factor != result[j].Factor {
			return result[i].Factor < result[j].Factor
		}
		return result[i].Benchmark < result[j].Benchmark
	})
	return result, nil
}

// LatestRunID returns the most recently inserted run.
func (s *CorrelationStore) LatestRunID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return "", storage.ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// trackRun records first sight of a run. Caller holds the lock.
func (s *CorrelationStore) trackRun(runID string) {
	for _, r := range s.runs {
		if r == runID {
			return
		}
	}
	s.runs = append(s.runs, runID)
}
