package files

import (
	"context"
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

const factorFilePrefix = "factor_"

// FactorValueStore implements storage.FactorValueStore as one
// factor_<name>.csv per factor with columns date, ticker, value.
type FactorValueStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFactorValueStore creates a store writing into dir.
func NewFactorValueStore(dir string) *FactorValueStore {
	return &FactorValueStore{dir: dir}
}

// Compile-time interface check.
var _ storage.FactorValueStore = (*FactorValueStore)(nil)

func (s *FactorValueStore) path(factor string) string {
	return filepath.Join(s.dir, factorFilePrefix+factor+".csv")
}

// Replace rewrites the factor file, sorted by date then ticker.
func (s *FactorValueStore) Replace(_ context.Context, factor string, values []*domain.FactorValue) error {
	if !validName(factor) {
		return storage.ErrInvalidInput
	}
	sorted := make([]*domain.FactorValue, 0, len(values))
	for _, v := range values {
		if v == nil {
			return storage.ErrInvalidInput
		}
		sorted = append(sorted, v)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	dates := make([]string, len(sorted))
	tickers := make([]string, len(sorted))
	vals := make([]string, len(sorted))
	for i, v := range sorted {
		dates[i] = v.Date.Format(domain.DateLayout)
		tickers[i] = v.Ticker
		vals[i] = formatFloat(v.Value)
	}
	df := dataframe.New(
		series.New(dates, series.String, "date"),
		series.New(tickers, series.String, "ticker"),
		series.New(vals, series.String, "value"),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return writeFrame(s.path(factor), df)
}

// GetByFactor reads factor_<name>.csv. Returns ErrNotFound if the file is absent.
func (s *FactorValueStore) GetByFactor(_ context.Context, factor string) ([]*domain.FactorValue, error) {
	if !validName(factor) {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	df, ok, err := readFrame(s.path(factor))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*domain.FactorValue{}, nil
	}

	dates := df.Col("date")
	tickers := df.Col("ticker")
	values := df.Col("value")
	if dates.Err != nil || tickers.Err != nil || values.Err != nil {
		return nil, fmt.Errorf("%s: expected columns date, ticker, value", factor)
	}

	raw := values.Float()
	result := make([]*domain.FactorValue, 0, df.Nrow())
	for i, d := range dates.Records() {
		date, err := parseDate(d)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", factor, i+1, err)
		}
		result = append(result, &domain.FactorValue{
			Factor: factor,
			Date:   date,
			Ticker: tickers.Elem(i).String(),
			Value:  raw[i],
		})
	}
	return result, nil
}

// Factors lists factor names with a stored file, in ascending order.
func (s *FactorValueStore) Factors(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, factorFilePrefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(name, factorFilePrefix), ".csv"))
	}
	sort.Strings(names)
	return names, nil
}
