package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// CorrelationStore implements storage.CorrelationStore using PostgreSQL.
// Each run is written once per table; factor_runs orders runs by first write.
type CorrelationStore struct {
	pool *Pool
}

// NewCorrelationStore creates a new CorrelationStore.
func NewCorrelationStore(pool *Pool) *CorrelationStore {
	return &CorrelationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CorrelationStore = (*CorrelationStore)(nil)

// InsertFactorCorrelations stores the pairwise matrix of a run atomically.
// Returns ErrDuplicateKey if the run already has factor correlations.
func (s *CorrelationStore) InsertFactorCorrelations(ctx context.Context, runID string, entries []*domain.CorrelationEntry) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, e := range entries {
		if e == nil || e.Left == "" || e.Right == "" {
			return storage.ErrInvalidInput
		}
	}
	start := time.Now()
	defer func() { observe("insert_factor_correlations", start, err) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO factor_correlations (run_id, left_factor, right_factor, value, n_obs)
			VALUES ($1, $2, $3, $4, $5)`,
			runID, e.Left, e.Right, e.Value, e.NObs)
	}
	return s.insertRun(ctx, "factor_correlations", runID, batch)
}

// InsertBenchmarkCorrelations stores long-short vs benchmark correlations of a run atomically.
// Returns ErrDuplicateKey if the run already has benchmark correlations.
func (s *CorrelationStore) InsertBenchmarkCorrelations(ctx context.Context, runID string, entries []*domain.BenchmarkCorrelation) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, e := range entries {
		if e == nil || e.Factor == "" || e.Benchmark == "" {
			return storage.ErrInvalidInput
		}
	}
	start := time.Now()
	defer func() { observe("insert_benchmark_correlations", start, err) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO factor_benchmark_correlations (run_id, factor, benchmark, value, n_obs)
			VALUES ($1, $2, $3, $4, $5)`,
			runID, e.Factor, e.Benchmark, e.Value, e.NObs)
	}
	return s.insertRun(ctx, "factor_benchmark_correlations", runID, batch)
}

// insertRun claims runID in table and sends batch in the same transaction.
func (s *CorrelationStore) insertRun(ctx context.Context, table, runID string, batch *pgx.Batch) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := claimRun(ctx, tx, table, runID); err != nil {
			return err
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert %s: %w", table, err)
		}
		return nil
	})
}

// claimRun fails with ErrDuplicateKey when table already holds rows of the run,
// then registers the run in factor_runs if it is new.
// table is one of the two fixed correlation tables, never user input.
func claimRun(ctx context.Context, tx pgx.Tx, table, runID string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE run_id = $1)`
	if err := tx.QueryRow(ctx, query, runID).Scan(&exists); err != nil {
		return fmt.Errorf("check run exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	_, err := tx.Exec(ctx, `INSERT INTO factor_runs (run_id) VALUES ($1) ON CONFLICT (run_id) DO NOTHING`, runID)
	if err != nil {
		return fmt.Errorf("register run: %w", err)
	}
	return nil
}

// GetFactorCorrelations retrieves a run's matrix ordered by left ASC, right ASC.
func (s *CorrelationStore) GetFactorCorrelations(ctx context.Context, runID string) ([]*domain.CorrelationEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, left_factor, right_factor, value, n_obs
		FROM factor_correlations
		WHERE run_id = $1
		ORDER BY left_factor ASC, right_factor ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("get factor correlations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CorrelationEntry, error) {
		var e domain.CorrelationEntry
		err := row.Scan(&e.RunID, &e.Left, &e.Right, &e.Value, &e.NObs)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan factor correlations: %w", err)
	}
	return out, nil
}

// GetBenchmarkCorrelations retrieves a run's entries ordered by factor ASC, benchmark ASC.
func (s *CorrelationStore) GetBenchmarkCorrelations(ctx context.Context, runID string) ([]*domain.BenchmarkCorrelation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, factor, benchmark, value, n_obs
		FROM factor_benchmark_correlations
		WHERE run_id = $1
		ORDER BY factor ASC, benchmark ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("get benchmark correlations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BenchmarkCorrelation, error) {
		var e domain.BenchmarkCorrelation
		err := row.Scan(&e.RunID, &e.Factor, &e.Benchmark, &e.Value, &e.NObs)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan benchmark correlations: %w", err)
	}
	return out, nil
}

// LatestRunID returns the most recently registered run. Returns ErrNotFound if none.
func (s *CorrelationStore) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := s.pool.QueryRow(ctx, `SELECT run_id FROM factor_runs ORDER BY seq DESC LIMIT 1`).Scan(&runID)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get latest run id: %w", err)
	}
	return runID, nil
}
