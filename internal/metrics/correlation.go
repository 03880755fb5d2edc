package metrics

import (
	"math"
	"sort"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
)

type cellKey struct {
	date   time.Time
	ticker string
}

// FactorCorrelation computes the full pairwise Pearson matrix across factor
// outputs, aligned on shared (date, ticker) cells. Entries are ordered by
// left ASC, right ASC and include the diagonal.
func FactorCorrelation(outputs map[string]*matrix.Wide) []*domain.CorrelationEntry {
	names := make([]string, 0, len(outputs))
	for n := range outputs {
		names = append(names, n)
	}
	sort.Strings(names)

	cells := make(map[string]map[cellKey]float64, len(names))
	for _, n := range names {
		m := make(map[cellKey]float64)
		for _, c := range outputs[n].Stack() {
			m[cellKey{c.Date, c.Ticker}] = c.Value
		}
		cells[n] = m
	}

	entries := make([]*domain.CorrelationEntry, 0, len(names)*len(names))
	for _, left := range names {
		for _, right := range names {
			xs, ys := sharedCells(cells[left], cells[right])
			entries = append(entries, &domain.CorrelationEntry{
				Left:  left,
				Right: right,
				Value: Pearson(xs, ys),
				NObs:  len(xs),
			})
		}
	}
	return entries
}

// sharedCells pairs values present in both maps, in a deterministic order.
func sharedCells(a, b map[cellKey]float64) ([]float64, []float64) {
	keys := make([]cellKey, 0, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].ticker < keys[j].ticker
	})
	xs := make([]float64, len(keys))
	ys := make([]float64, len(keys))
	for i, k := range keys {
		xs[i], ys[i] = a[k], b[k]
	}
	return xs, ys
}

// BenchmarkCorrelation correlates each factor's long-short series with every
// benchmark column on shared dates. Ordered by factor ASC, benchmark ASC.
func BenchmarkCorrelation(ls map[string]Series, bench *domain.BenchmarkSeries) []*domain.BenchmarkCorrelation {
	if bench == nil || len(bench.Dates) == 0 {
		return nil
	}
	benchRow := make(map[time.Time]int, len(bench.Dates))
	for i, d := range bench.Dates {
		benchRow[d] = i
	}

	factors := make([]string, 0, len(ls))
	for f := range ls {
		factors = append(factors, f)
	}
	sort.Strings(factors)

	var out []*domain.BenchmarkCorrelation
	for _, f := range factors {
		series := ls[f]
		for _, b := range bench.Names() {
			col := bench.Columns[b]
			var xs, ys []float64
			for i, d := range series.Dates {
				k, ok := benchRow[d]
				if !ok || math.IsNaN(series.Values[i]) || math.IsNaN(col[k]) {
					continue
				}
				xs = append(xs, series.Values[i])
				ys = append(ys, col[k])
			}
			out = append(out, &domain.BenchmarkCorrelation{
				Factor:    f,
				Benchmark: b,
				Value:     Pearson(xs, ys),
				NObs:      len(xs),
			})
		}
	}
	return out
}
