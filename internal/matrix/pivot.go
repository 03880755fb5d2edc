package matrix

import (
	"math"
	"sort"
	"time"

	"quantlab-factor-library/internal/domain"
)

// Cell is one non-missing matrix entry in long format.
type Cell struct {
	Date   time.Time
	Ticker string
	Value  float64
}

// Pivot turns long records into a date x ticker matrix of one numeric column.
// Duplicate (date, ticker) pairs are averaged. Records without the column are
// ignored for values but still contribute their date and ticker to the index.
func Pivot(records []*domain.Record, column string) *Wide {
	return PivotMany(records, column)[column]
}

// PivotMany pivots several columns onto one shared index.
func PivotMany(records []*domain.Record, columns ...string) map[string]*Wide {
	dateSet := make(map[time.Time]struct{})
	tickerSet := make(map[string]struct{})
	for _, r := range records {
		if r.Ticker == "" {
			continue
		}
		dateSet[r.Date.UTC()] = struct{}{}
		tickerSet[r.Ticker] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	tickers := make([]string, 0, len(tickerSet))
	for t := range tickerSet {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	rowIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIdx[d] = i
	}
	colIdx := make(map[string]int, len(tickers))
	for j, t := range tickers {
		colIdx[t] = j
	}

	out := make(map[string]*Wide, len(columns))
	for _, c := range columns {
		sums := New(dates, tickers)
		counts := make([][]int, len(dates))
		for i := range counts {
			counts[i] = make([]int, len(tickers))
		}
		for _, r := range records {
			if r.Ticker == "" {
				continue
			}
			v, ok := r.Values[c]
			if !ok || math.IsNaN(v) {
				continue
			}
			i, j := rowIdx[r.Date.UTC()], colIdx[r.Ticker]
			if counts[i][j] == 0 {
				sums.Values[i][j] = v
			} else {
				sums.Values[i][j] += v
			}
			counts[i][j]++
		}
		for i := range counts {
			for j, n := range counts[i] {
				if n > 1 {
					sums.Values[i][j] /= float64(n)
				}
			}
		}
		out[c] = sums
	}
	return out
}

// Stack returns the non-missing cells ordered by date then ticker position.
func (w *Wide) Stack() []Cell {
	cells := make([]Cell, 0, w.ValidCount())
	for i, d := range w.Dates {
		for j, t := range w.Tickers {
			if v := w.Values[i][j]; !math.IsNaN(v) {
				cells = append(cells, Cell{Date: d, Ticker: t, Value: v})
			}
		}
	}
	return cells
}

// Unstack builds a matrix from long cells; the inverse of Stack.
func Unstack(cells []Cell) *Wide {
	records := make([]*domain.Record, len(cells))
	for i, c := range cells {
		records[i] = &domain.Record{Ticker: c.Ticker, Date: c.Date, Values: map[string]float64{"value": c.Value}}
	}
	return Pivot(records, "value")
}
