package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// RegistryStore implements storage.RegistryStore using PostgreSQL.
type RegistryStore struct {
	pool *Pool
}

// NewRegistryStore creates a new RegistryStore.
func NewRegistryStore(pool *Pool) *RegistryStore {
	return &RegistryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RegistryStore = (*RegistryStore)(nil)

const registryColumns = `
	factor, run_id,
	ic_mean, ic_std, ic_ir, t_stat, hit_rate, n_dates,
	ls_mean, ls_std, ls_sharpe,
	updated_at
`

// Upsert inserts or replaces the summary keyed by factor name.
func (s *RegistryStore) Upsert(ctx context.Context, f *domain.FactorSummary) (err error) {
	if f == nil || f.Factor == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("registry_upsert", start, err) }()

	query := `
		INSERT INTO factor_registry (` + registryColumns + `) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7, $8,
			$9, $10, $11,
			$12
		)
		ON CONFLICT (factor) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			ic_mean = EXCLUDED.ic_mean,
			ic_std = EXCLUDED.ic_std,
			ic_ir = EXCLUDED.ic_ir,
			t_stat = EXCLUDED.t_stat,
			hit_rate = EXCLUDED.hit_rate,
			n_dates = EXCLUDED.n_dates,
			ls_mean = EXCLUDED.ls_mean,
			ls_std = EXCLUDED.ls_std,
			ls_sharpe = EXCLUDED.ls_sharpe,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		f.Factor, f.RunID,
		f.ICMean, f.ICStd, f.ICIR, f.TStat, f.HitRate, f.NDates,
		f.LSMean, f.LSStd, f.LSSharpe,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert factor summary: %w", err)
	}
	return nil
}

// GetByFactor retrieves the summary of a factor. Returns ErrNotFound if not exists.
func (s *RegistryStore) GetByFactor(ctx context.Context, factor string) (*domain.FactorSummary, error) {
	query := `SELECT ` + registryColumns + ` FROM factor_registry WHERE factor = $1`

	f, err := scanSummary(s.pool.QueryRow(ctx, query, factor))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get factor summary: %w", err)
	}
	return f, nil
}

// GetAll retrieves all summaries ordered by factor ASC.
func (s *RegistryStore) GetAll(ctx context.Context) ([]*domain.FactorSummary, error) {
	query := `SELECT ` + registryColumns + ` FROM factor_registry ORDER BY factor ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get factor summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.FactorSummary
	for rows.Next() {
		f, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factor summary: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate factor summaries: %w", err)
	}
	return result, nil
}

func scanSummary(row pgx.Row) (*domain.FactorSummary, error) {
	var f domain.FactorSummary
	err := row.Scan(
		&f.Factor, &f.RunID,
		&f.ICMean, &f.ICStd, &f.ICIR, &f.TStat, &f.HitRate, &f.NDates,
		&f.LSMean, &f.LSStd, &f.LSSharpe,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}
