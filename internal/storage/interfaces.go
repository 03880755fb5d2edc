package storage

import (
	"context"

	"quantlab-factor-library/internal/domain"
)

// DatasetStore provides access to long-format input datasets
// (price_daily, fundamentals_*, company_overview, benchmark_factors).
type DatasetStore interface {
	// InsertBulk appends records to a dataset. Returns ErrInvalidInput on empty dataset name.
	InsertBulk(ctx context.Context, dataset string, records []*domain.Record) error

	// Load retrieves all records of a dataset, ordered by date ASC, ticker ASC.
	// Returns ErrNotFound if the dataset does not exist.
	Load(ctx context.Context, dataset string) ([]*domain.Record, error)

	// Datasets lists the available dataset names in ascending order.
	Datasets(ctx context.Context) ([]string, error)
}

// FactorValueStore provides access to clean factor values in long format.
type FactorValueStore interface {
	// Replace swaps all stored values of a factor for the given ones.
	Replace(ctx context.Context, factor string, values []*domain.FactorValue) error

	// GetByFactor retrieves values of a factor, ordered by date ASC, ticker ASC.
	// Returns ErrNotFound if the factor was never stored.
	GetByFactor(ctx context.Context, factor string) ([]*domain.FactorValue, error)

	// Factors lists stored factor names in ascending order.
	Factors(ctx context.Context) ([]string, error)
}

// RegistryStore provides access to the factor_registry summaries.
type RegistryStore interface {
	// Upsert inserts or replaces the summary keyed by factor name.
	Upsert(ctx context.Context, s *domain.FactorSummary) error

	// GetByFactor retrieves the summary of a factor. Returns ErrNotFound if not exists.
	GetByFactor(ctx context.Context, factor string) (*domain.FactorSummary, error)

	// GetAll retrieves all summaries ordered by factor ASC.
	GetAll(ctx context.Context) ([]*domain.FactorSummary, error)
}

// CorrelationStore provides access to per-run correlation outputs.
// Runs are append-only: a run's entries cannot be rewritten.
type CorrelationStore interface {
	// InsertFactorCorrelations stores the pairwise matrix of a run.
	// Returns ErrDuplicateKey if the run already has factor correlations.
	InsertFactorCorrelations(ctx context.Context, runID string, entries []*domain.CorrelationEntry) error

	// InsertBenchmarkCorrelations stores long-short vs benchmark correlations of a run.
	// Returns ErrDuplicateKey if the run already has benchmark correlations.
	InsertBenchmarkCorrelations(ctx context.Context, runID string, entries []*domain.BenchmarkCorrelation) error

	// GetFactorCorrelations retrieves a run's matrix ordered by left ASC, right ASC.
	GetFactorCorrelations(ctx context.Context, runID string) ([]*domain.CorrelationEntry, error)

	// GetBenchmarkCorrelations retrieves a run's entries ordered by factor ASC, benchmark ASC.
	GetBenchmarkCorrelations(ctx context.Context, runID string) ([]*domain.BenchmarkCorrelation, error)

	// LatestRunID returns the most recently inserted run. Returns ErrNotFound if none.
	LatestRunID(ctx context.Context) (string, error)
}
