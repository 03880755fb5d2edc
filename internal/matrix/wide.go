// Package matrix provides the date x ticker wide matrix used by factors,
// cleaning and analytics. Missing cells are NaN.
package matrix

import (
	"math"
	"sort"
	"time"
)

// Wide is a date-indexed, ticker-keyed numeric table.
// Dates are ascending and unique. Values is row-major: Values[date][ticker].
type Wide struct {
	Dates   []time.Time
	Tickers []string
	Values  [][]float64
}

// New creates a matrix of the given shape with every cell missing.
func New(dates []time.Time, tickers []string) *Wide {
	w := &Wide{
		Dates:   append([]time.Time(nil), dates...),
		Tickers: append([]string(nil), tickers...),
		Values:  make([][]float64, len(dates)),
	}
	for i := range w.Values {
		w.Values[i] = nanRow(len(tickers))
	}
	return w
}

// FromRows builds a matrix from explicit rows. Rows are copied.
func FromRows(dates []time.Time, tickers []string, rows [][]float64) *Wide {
	w := &Wide{
		Dates:   append([]time.Time(nil), dates...),
		Tickers: append([]string(nil), tickers...),
		Values:  make([][]float64, len(rows)),
	}
	for i, r := range rows {
		w.Values[i] = append([]float64(nil), r...)
	}
	return w
}

// Rows returns the number of dates.
func (w *Wide) Rows() int {
	if w == nil {
		return 0
	}
	return len(w.Dates)
}

// Cols returns the number of tickers.
func (w *Wide) Cols() int {
	if w == nil {
		return 0
	}
	return len(w.Tickers)
}

// Empty reports whether the matrix has no rows or no columns.
func (w *Wide) Empty() bool {
	return w.Rows() == 0 || w.Cols() == 0
}

// Clone returns a deep copy.
func (w *Wide) Clone() *Wide {
	if w == nil {
		return nil
	}
	return FromRows(w.Dates, w.Tickers, w.Values)
}

// Like returns an all-missing matrix with the same shape.
func (w *Wide) Like() *Wide {
	return New(w.Dates, w.Tickers)
}

// Col returns the column index of ticker, or -1.
func (w *Wide) Col(ticker string) int {
	for j, t := range w.Tickers {
		if t == ticker {
			return j
		}
	}
	return -1
}

// RowOf returns the row index of date, or -1.
func (w *Wide) RowOf(date time.Time) int {
	i := sort.Search(len(w.Dates), func(i int) bool { return !w.Dates[i].Before(date) })
	if i < len(w.Dates) && w.Dates[i].Equal(date) {
		return i
	}
	return -1
}

// Get returns the cell at (date, ticker), NaN when absent.
func (w *Wide) Get(date time.Time, ticker string) float64 {
	i, j := w.RowOf(date), w.Col(ticker)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return w.Values[i][j]
}

// Column returns a copy of one ticker's time series.
func (w *Wide) Column(j int) []float64 {
	out := make([]float64, w.Rows())
	for i := range w.Values {
		out[i] = w.Values[i][j]
	}
	return out
}

// SelectRows returns the rows at the given indices, in that order.
func (w *Wide) SelectRows(idx []int) *Wide {
	out := &Wide{
		Dates:   make([]time.Time, 0, len(idx)),
		Tickers: append([]string(nil), w.Tickers...),
		Values:  make([][]float64, 0, len(idx)),
	}
	for _, i := range idx {
		out.Dates = append(out.Dates, w.Dates[i])
		out.Values = append(out.Values, append([]float64(nil), w.Values[i]...))
	}
	return out
}

// CountValid returns the number of non-missing cells in a row.
func CountValid(row []float64) int {
	n := 0
	for _, v := range row {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Valid returns the non-missing values of a row.
func Valid(row []float64) []float64 {
	out := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidCount returns the number of non-missing cells in the matrix.
func (w *Wide) ValidCount() int {
	n := 0
	for _, r := range w.Values {
		n += CountValid(r)
	}
	return n
}

func nanRow(n int) []float64 {
	r := make([]float64, n)
	for j := range r {
		r[j] = math.NaN()
	}
	return r
}
