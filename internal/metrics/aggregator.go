package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// ErrNoSummaries is returned when there is nothing to store.
var ErrNoSummaries = errors.New("no factor summaries to store")

// Aggregator persists run-level analytics: registry summaries and
// correlation outputs. Writes are sequential and ordered by factor name.
type Aggregator struct {
	registryStore    storage.RegistryStore
	correlationStore storage.CorrelationStore
	clock            func() time.Time
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(registry storage.RegistryStore, correlations storage.CorrelationStore) *Aggregator {
	return &Aggregator{
		registryStore:    registry,
		correlationStore: correlations,
		clock:            time.Now,
	}
}

// WithClock sets the clock used for UpdatedAt.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// Summarize stamps an analytics summary with its factor, run and time.
func (a *Aggregator) Summarize(factor, runID string, an *Analytics) *domain.FactorSummary {
	s := an.Summary
	s.Factor = factor
	s.RunID = runID
	s.UpdatedAt = a.clock().UTC()
	return &s
}

// StoreSummaries upserts summaries into the registry in factor order.
// Returns ErrNoSummaries if summaries is empty.
func (a *Aggregator) StoreSummaries(ctx context.Context, summaries []*domain.FactorSummary) error {
	if len(summaries) == 0 {
		return ErrNoSummaries
	}
	if a.registryStore == nil {
		return nil
	}

	sorted := make([]*domain.FactorSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Factor < sorted[j].Factor })

	for _, s := range sorted {
		if err := a.registryStore.Upsert(ctx, s); err != nil {
			return fmt.Errorf("upsert registry %s: %w", s.Factor, err)
		}
	}
	return nil
}

// StoreCorrelations persists a run's factor and benchmark correlations.
// Empty inputs are skipped.
func (a *Aggregator) StoreCorrelations(ctx context.Context, runID string, factors []*domain.CorrelationEntry, bench []*domain.BenchmarkCorrelation) error {
	if a.correlationStore == nil {
		return nil
	}
	for _, e := range factors {
		e.RunID = runID
	}
	for _, e := range bench {
		e.RunID = runID
	}

	if len(factors) > 0 {
		if err := a.correlationStore.InsertFactorCorrelations(ctx, runID, factors); err != nil {
			return fmt.Errorf("insert factor correlations: %w", err)
		}
	}
	if len(bench) > 0 {
		if err := a.correlationStore.InsertBenchmarkCorrelations(ctx, runID, bench); err != nil {
			return fmt.Errorf("insert benchmark correlations: %w", err)
		}
	}
	return nil
}
