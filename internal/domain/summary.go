package domain

import (
	"sort"
	"time"
)

// FactorSummary is the registry entry for one factor.
// Corresponds to factor_registry table in PostgreSQL.
type FactorSummary struct {
	Factor string
	RunID  string

	// Information coefficient (per-date Spearman rank correlation)
	ICMean  float64
	ICStd   float64
	ICIR    float64 // ic_mean / ic_std
	TStat   float64 // icir * sqrt(n_dates)
	HitRate float64 // share of dates with IC > 0
	NDates  int

	// Long-short (top minus bottom quantile) daily returns
	LSMean   float64
	LSStd    float64
	LSSharpe float64 // annualized, sqrt(252)

	UpdatedAt time.Time
}

// CorrelationEntry is one cell of the factor-pairwise correlation matrix.
type CorrelationEntry struct {
	RunID string
	Left  string
	Right string
	Value float64
	NObs  int // shared (date, ticker) cells
}

// BenchmarkCorrelation is the correlation of a factor's long-short return
// series against one benchmark factor series.
type BenchmarkCorrelation struct {
	RunID     string
	Factor    string
	Benchmark string
	Value     float64
	NObs      int // shared dates
}

// BenchmarkSeries holds benchmark factor returns (mktrf, smb, hml, ...) by date.
type BenchmarkSeries struct {
	Dates   []time.Time
	Columns map[string][]float64 // column -> values aligned with Dates
}

// Names returns the benchmark column names in ascending order.
func (b *BenchmarkSeries) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.Columns))
	for k := range b.Columns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
