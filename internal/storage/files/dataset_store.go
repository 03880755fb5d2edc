package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// DatasetStore implements storage.DatasetStore over <dir>/<dataset>.csv files.
// Numeric columns become record values and string columns become labels;
// missing cells are omitted from the record.
type DatasetStore struct {
	dir string
	mu  sync.RWMutex
}

// NewDatasetStore creates a store rooted at dir.
func NewDatasetStore(dir string) *DatasetStore {
	return &DatasetStore{dir: dir}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

func (s *DatasetStore) path(dataset string) string {
	return filepath.Join(s.dir, dataset+".csv")
}

// Load parses <dir>/<dataset>.csv, ordered by date ASC, ticker ASC.
func (s *DatasetStore) Load(_ context.Context, dataset string) ([]*domain.Record, error) {
	if !validName(dataset) {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	df, ok, err := readFrame(s.path(dataset))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*domain.Record{}, nil
	}

	records, err := frameToRecords(df)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dataset, err)
	}
	sortRecords(records)
	return records, nil
}

// InsertBulk appends records by rewriting the dataset file.
func (s *DatasetStore) InsertBulk(_ context.Context, dataset string, records []*domain.Record) error {
	if !validName(dataset) {
		return storage.ErrInvalidInput
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(dataset)
	var all []*domain.Record
	df, ok, err := readFrame(path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	case ok:
		if all, err = frameToRecords(df); err != nil {
			return fmt.Errorf("%s: %w", dataset, err)
		}
	}
	all = append(all, records...)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return writeFrame(path, recordsToFrame(all))
}

// Datasets lists the CSV files in the directory, excluding factor outputs.
func (s *DatasetStore) Datasets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasPrefix(name, factorFilePrefix) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(names)
	return names, nil
}

func frameToRecords(df dataframe.DataFrame) ([]*domain.Record, error) {
	names := df.Names()
	tickerCol := findColumn(names, tickerColumns)
	dateCol := findColumn(names, dateColumns)

	records := make([]*domain.Record, df.Nrow())
	for i := range records {
		records[i] = &domain.Record{}
	}

	for _, name := range names {
		col := df.Col(name)
		switch {
		case name == tickerCol:
			for i, v := range col.Records() {
				if !col.Elem(i).IsNA() {
					records[i].Ticker = strings.TrimSpace(v)
				}
			}
		case name == dateCol:
			for i, v := range col.Records() {
				if col.Elem(i).IsNA() || strings.TrimSpace(v) == "" {
					continue
				}
				d, err := parseDate(v)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i+1, err)
				}
				records[i].Date = d
			}
		case col.Type() == series.Float || col.Type() == series.Int:
			for i, v := range col.Float() {
				if col.Elem(i).IsNA() {
					continue
				}
				if records[i].Values == nil {
					records[i].Values = make(map[string]float64)
				}
				records[i].Values[name] = v
			}
		default:
			for i, v := range col.Records() {
				if col.Elem(i).IsNA() || v == "" {
					continue
				}
				if records[i].Labels == nil {
					records[i].Labels = make(map[string]string)
				}
				records[i].Labels[name] = v
			}
		}
	}
	return records, nil
}

// recordsToFrame lays out ticker, date, then numeric and label columns in name order.
func recordsToFrame(records []*domain.Record) dataframe.DataFrame {
	valueCols := make(map[string]struct{})
	labelCols := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Values {
			valueCols[k] = struct{}{}
		}
		for k := range r.Labels {
			labelCols[k] = struct{}{}
		}
	}

	tickers := make([]string, len(records))
	dates := make([]string, len(records))
	for i, r := range records {
		tickers[i] = r.Ticker
		if !r.Date.IsZero() {
			dates[i] = r.Date.Format(domain.DateLayout)
		}
	}
	cols := []series.Series{
		series.New(tickers, series.String, "ticker"),
		series.New(dates, series.String, "date"),
	}

	for _, name := range sortedNames(valueCols) {
		vals := make([]string, len(records))
		for i, r := range records {
			if v, ok := r.Values[name]; ok {
				vals[i] = formatFloat(v)
			} else {
				vals[i] = "NaN"
			}
		}
		cols = append(cols, series.New(vals, series.String, name))
	}
	for _, name := range sortedNames(labelCols) {
		vals := make([]string, len(records))
		for i, r := range records {
			vals[i] = r.Labels[name]
		}
		cols = append(cols, series.New(vals, series.String, name))
	}
	return dataframe.New(cols...)
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortRecords(records []*domain.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].Ticker < records[j].Ticker
	})
}
