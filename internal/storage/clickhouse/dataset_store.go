package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// DatasetStore implements storage.DatasetStore over the dataset_records
// EAV table. Each source row becomes one cell per column sharing a row_id.
// A dataset exists once it holds at least one cell.
type DatasetStore struct {
	conn *Conn
	mu   sync.Mutex // serializes row_id allocation
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(conn *Conn) *DatasetStore {
	return &DatasetStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// InsertBulk appends records to a dataset in one batch.
func (s *DatasetStore) InsertBulk(ctx context.Context, dataset string, records []*domain.Record) (err error) {
	if dataset == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("dataset_insert", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	var next uint64
	row := s.conn.QueryRow(ctx, `SELECT max(row_id) + 1 FROM dataset_records WHERE dataset = ?`, dataset)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("allocate row ids: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO dataset_records (
			dataset, ticker, date, row_id, field, num_value, str_value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range records {
		rowID := next + uint64(i)
		for _, col := range sortedKeys(r.Values) {
			v := r.Values[col]
			if err := batch.Append(dataset, r.Ticker, r.Date, rowID, col, &v, nil); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		for _, col := range sortedKeys(r.Labels) {
			v := r.Labels[col]
			if err := batch.Append(dataset, r.Ticker, r.Date, rowID, col, nil, &v); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Load retrieves all records of a dataset, ordered by date ASC, ticker ASC.
func (s *DatasetStore) Load(ctx context.Context, dataset string) (_ []*domain.Record, err error) {
	start := time.Now()
	defer func() { observe("dataset_load", start, err) }()

	query := `
		SELECT ticker, date, row_id, field, num_value, str_value
		FROM dataset_records
		WHERE dataset = ?
		ORDER BY date ASC, ticker ASC, row_id ASC
	`

	rows, err := s.conn.Query(ctx, query, dataset)
	if err != nil {
		return nil, fmt.Errorf("query dataset records: %w", err)
	}
	defer rows.Close()

	var (
		result []*domain.Record
		cur    *domain.Record
		curID  uint64
	)
	for rows.Next() {
		var (
			ticker string
			date   time.Time
			rowID  uint64
			field  string
			num    *float64
			str    *string
		)
		if err := rows.Scan(&ticker, &date, &rowID, &field, &num, &str); err != nil {
			return nil, fmt.Errorf("scan dataset record: %w", err)
		}
		if cur == nil || rowID != curID {
			cur = &domain.Record{Ticker: ticker, Date: date.UTC()}
			curID = rowID
			result = append(result, cur)
		}
		switch {
		case num != nil:
			if cur.Values == nil {
				cur.Values = make(map[string]float64)
			}
			cur.Values[field] = *num
		case str != nil:
			if cur.Labels == nil {
				cur.Labels = make(map[string]string)
			}
			cur.Labels[field] = *str
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset records: %w", err)
	}

	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// Datasets lists the available dataset names in ascending order.
func (s *DatasetStore) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT dataset FROM dataset_records ORDER BY dataset ASC`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
