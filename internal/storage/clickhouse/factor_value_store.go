package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// FactorValueStore implements storage.FactorValueStore using ClickHouse.
// A factor replaced with no values is indistinguishable from one never stored.
type FactorValueStore struct {
	conn *Conn
}

// NewFactorValueStore creates a new FactorValueStore.
func NewFactorValueStore(conn *Conn) *FactorValueStore {
	return &FactorValueStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FactorValueStore = (*FactorValueStore)(nil)

// Replace deletes the factor's rows synchronously, then inserts values in one batch.
func (s *FactorValueStore) Replace(ctx context.Context, factor string, values []*domain.FactorValue) (err error) {
	if factor == "" {
		return storage.ErrInvalidInput
	}
	for _, v := range values {
		if v == nil {
			return storage.ErrInvalidInput
		}
	}
	start := time.Now()
	defer func() { observe("factor_values_replace", start, err) }()

	// Wait for the mutation on all replicas before inserting.
	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))
	if err := s.conn.Exec(syncCtx, `ALTER TABLE factor_values DELETE WHERE factor = ?`, factor); err != nil {
		return fmt.Errorf("delete factor values: %w", err)
	}
	if len(values) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO factor_values (factor, date, ticker, value)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, v := range values {
		if err := batch.Append(factor, v.Date, v.Ticker, v.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByFactor retrieves values of a factor, ordered by date ASC, ticker ASC.
func (s *FactorValueStore) GetByFactor(ctx context.Context, factor string) ([]*domain.FactorValue, error) {
	query := `
		SELECT factor, date, ticker, value
		FROM factor_values
		WHERE factor = ?
		ORDER BY date ASC, ticker ASC
	`

	rows, err := s.conn.Query(ctx, query, factor)
	if err != nil {
		return nil, fmt.Errorf("query factor values: %w", err)
	}
	defer rows.Close()

	var result []*domain.FactorValue
	for rows.Next() {
		var v domain.FactorValue
		if err := rows.Scan(&v.Factor, &v.Date, &v.Ticker, &v.Value); err != nil {
			return nil, fmt.Errorf("scan factor value: %w", err)
		}
		v.Date = v.Date.UTC()
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate factor values: %w", err)
	}

	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// Factors lists stored factor names in ascending order.
func (s *FactorValueStore) Factors(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT factor FROM factor_values ORDER BY factor ASC`)
	if err != nil {
		return nil, fmt.Errorf("query factors: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan factor name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
