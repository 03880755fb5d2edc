// Package provider loads long-format datasets and serves them to factors as
// wide date x ticker matrices.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/storage"
)

// Errors returned by table providers.
var (
	ErrMissingDataset = errors.New("dataset not available")
	ErrMissingColumn  = errors.New("column not available")
)

// PriceColumns are tried in order when building the price matrix.
var PriceColumns = []string{"adjusted_close", "close", "price"}

// percentThreshold marks benchmark series quoted in percent.
const percentThreshold = 2.0

// TableProvider supplies input tables to factors.
// Implementations must be safe for use by a single task; the orchestrator
// builds one provider per task.
type TableProvider interface {
	// LoadLong returns a dataset's records ordered by date then ticker.
	LoadLong(ctx context.Context, dataset string) ([]*domain.Record, error)

	// PriceWide returns the daily price matrix.
	PriceWide(ctx context.Context) (*matrix.Wide, error)

	// ColumnWide pivots one numeric column of a dataset.
	ColumnWide(ctx context.Context, dataset, column string) (*matrix.Wide, error)

	// SectorMap returns ticker -> sector from company_overview.
	SectorMap(ctx context.Context) (domain.SectorMap, error)

	// Benchmark returns the benchmark factor series (mktrf, smb, ...).
	Benchmark(ctx context.Context) (*domain.BenchmarkSeries, error)
}

// Factory builds a fresh TableProvider.
type Factory func() TableProvider

// Options configures a Loader.
type Options struct {
	Start time.Time // zero means unbounded
	End   time.Time // zero means unbounded
}

// Loader implements TableProvider over a storage.DatasetStore.
// Loaded datasets are cached per instance.
type Loader struct {
	store storage.DatasetStore
	opts  Options

	mu    sync.Mutex
	cache map[string][]*domain.Record
}

// Compile-time interface check.
var _ TableProvider = (*Loader)(nil)

// NewLoader creates a Loader.
func NewLoader(store storage.DatasetStore, opts Options) *Loader {
	return &Loader{
		store: store,
		opts:  opts,
		cache: make(map[string][]*domain.Record),
	}
}

// NewFactory returns a Factory producing independent Loaders over store.
func NewFactory(store storage.DatasetStore, opts Options) Factory {
	return func() TableProvider {
		return NewLoader(store, opts)
	}
}

// LoadLong loads a dataset clipped to [Start, End].
func (l *Loader) LoadLong(ctx context.Context, dataset string) ([]*domain.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if records, ok := l.cache[dataset]; ok {
		return records, nil
	}

	records, err := l.store.Load(ctx, dataset)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingDataset, dataset, err)
		}
		return nil, fmt.Errorf("load %s: %w", dataset, err)
	}

	records = l.clip(records)
	l.cache[dataset] = records
	return records, nil
}

func (l *Loader) clip(records []*domain.Record) []*domain.Record {
	if l.opts.Start.IsZero() && l.opts.End.IsZero() {
		return records
	}
	out := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		// Undated rows (company_overview) are never clipped.
		if r.Date.IsZero() {
			out = append(out, r)
			continue
		}
		if !l.opts.Start.IsZero() && r.Date.Before(l.opts.Start) {
			continue
		}
		if !l.opts.End.IsZero() && r.Date.After(l.opts.End) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PriceWide pivots the first available price column of price_daily.
func (l *Loader) PriceWide(ctx context.Context) (*matrix.Wide, error) {
	records, err := l.LoadLong(ctx, domain.DatasetPriceDaily)
	if err != nil {
		return nil, err
	}
	for _, col := range PriceColumns {
		if domain.HasColumn(records, col) {
			return matrix.Pivot(records, col), nil
		}
	}
	return nil, fmt.Errorf("%w: no price column in %s", ErrMissingColumn, domain.DatasetPriceDaily)
}

// ColumnWide pivots column of dataset.
func (l *Loader) ColumnWide(ctx context.Context, dataset, column string) (*matrix.Wide, error) {
	records, err := l.LoadLong(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if !domain.HasColumn(records, column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, dataset, column)
	}
	return matrix.Pivot(records, column), nil
}

// SectorMap reads the Sector label of company_overview.
// Tickers without a sector are omitted.
func (l *Loader) SectorMap(ctx context.Context) (domain.SectorMap, error) {
	records, err := l.LoadLong(ctx, domain.DatasetCompanyOverview)
	if err != nil {
		return nil, err
	}
	if !domain.HasLabel(records, domain.SectorColumn) {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, domain.DatasetCompanyOverview, domain.SectorColumn)
	}
	sectors := make(domain.SectorMap)
	for _, r := range records {
		if s := r.Label(domain.SectorColumn); s != "" && r.Ticker != "" {
			sectors[r.Ticker] = s
		}
	}
	return sectors, nil
}

// Benchmark loads benchmark_factors. Column names are lowercased and
// percent-quoted series (max |value| > 2) are divided by 100.
func (l *Loader) Benchmark(ctx context.Context) (*domain.BenchmarkSeries, error) {
	records, err := l.LoadLong(ctx, domain.DatasetBenchmarkFactors)
	if err != nil {
		return nil, err
	}
	return BuildBenchmark(records), nil
}

// BuildBenchmark converts benchmark records to a date-sorted series.
// Duplicate dates keep the last record.
func BuildBenchmark(records []*domain.Record) *domain.BenchmarkSeries {
	byDate := make(map[time.Time]map[string]float64)
	names := make(map[string]struct{})
	for _, r := range records {
		d := r.Date.UTC()
		row, ok := byDate[d]
		if !ok {
			row = make(map[string]float64)
			byDate[d] = row
		}
		for k, v := range r.Values {
			name := strings.ToLower(k)
			row[name] = v
			names[name] = struct{}{}
		}
	}

	series := &domain.BenchmarkSeries{
		Dates:   make([]time.Time, 0, len(byDate)),
		Columns: make(map[string][]float64, len(names)),
	}
	for d := range byDate {
		series.Dates = append(series.Dates, d)
	}
	sort.Slice(series.Dates, func(i, j int) bool { return series.Dates[i].Before(series.Dates[j]) })

	maxAbs := 0.0
	for name := range names {
		col := make([]float64, len(series.Dates))
		for i, d := range series.Dates {
			v, ok := byDate[d][name]
			if !ok {
				v = math.NaN()
			}
			col[i] = v
			if !math.IsNaN(v) {
				maxAbs = math.Max(maxAbs, math.Abs(v))
			}
		}
		series.Columns[name] = col
	}

	if maxAbs > percentThreshold {
		for _, col := range series.Columns {
			for i := range col {
				col[i] /= 100
			}
		}
	}
	return series
}

// ForwardReturns returns price[t+h]/price[t] - 1, missing for the last h dates.
func ForwardReturns(price *matrix.Wide, horizon int) *matrix.Wide {
	return matrix.Div(price.Shift(-horizon), price).Map(func(v float64) float64 { return v - 1 })
}
