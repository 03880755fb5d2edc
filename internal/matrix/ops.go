package matrix

import (
	"math"
	"sort"
	"time"
)

// Shift moves values down by n rows (n > 0 lags, n < 0 leads).
// Vacated cells become missing. The date index is unchanged.
func (w *Wide) Shift(n int) *Wide {
	out := w.Like()
	rows := w.Rows()
	for i := 0; i < rows; i++ {
		src := i - n
		if src < 0 || src >= rows {
			continue
		}
		copy(out.Values[i], w.Values[src])
	}
	return out
}

// Reindex conforms the matrix to the given dates. Dates not present
// become all-missing rows. dates must be ascending.
func (w *Wide) Reindex(dates []time.Time) *Wide {
	out := New(dates, w.Tickers)
	for i, d := range dates {
		if src := w.RowOf(d); src >= 0 {
			copy(out.Values[i], w.Values[src])
		}
	}
	return out
}

// AsOf maps each source row onto the first target date on or after it,
// so values become visible from their first tradable date. Later source
// rows overwrite earlier ones on the same target date; missing cells never
// overwrite. Source rows after the last target date are dropped.
func (w *Wide) AsOf(dates []time.Time) *Wide {
	out := New(dates, w.Tickers)
	for i, d := range w.Dates {
		k := sort.Search(len(dates), func(k int) bool { return !dates[k].Before(d) })
		if k == len(dates) {
			continue
		}
		for j, v := range w.Values[i] {
			if !math.IsNaN(v) {
				out.Values[k][j] = v
			}
		}
	}
	return out
}

// ReindexTickers conforms the matrix to the given tickers. Unknown tickers
// become all-missing columns; tickers not listed are dropped.
func (w *Wide) ReindexTickers(tickers []string) *Wide {
	out := New(w.Dates, tickers)
	idx := make(map[string]int, len(w.Tickers))
	for j, t := range w.Tickers {
		idx[t] = j
	}
	for k, t := range tickers {
		j, ok := idx[t]
		if !ok {
			continue
		}
		for i := range out.Values {
			out.Values[i][k] = w.Values[i][j]
		}
	}
	return out
}

// FFill propagates the last non-missing value of each column forward.
func (w *Wide) FFill() *Wide {
	out := w.Clone()
	for j := range out.Tickers {
		last := math.NaN()
		for i := range out.Values {
			if math.IsNaN(out.Values[i][j]) {
				out.Values[i][j] = last
			} else {
				last = out.Values[i][j]
			}
		}
	}
	return out
}

// PctChange returns x[t]/x[t-periods] - 1 per column over forward-filled
// values, so a return spans a gap instead of going missing. Cells before a
// column's first value stay missing.
func (w *Wide) PctChange(periods int) *Wide {
	filled := w.FFill()
	return Div(filled, filled.Shift(periods)).Map(func(v float64) float64 { return v - 1 })
}

// Map applies f to every non-missing cell.
func (w *Wide) Map(f func(float64) float64) *Wide {
	out := w.Clone()
	for _, r := range out.Values {
		for j, v := range r {
			if !math.IsNaN(v) {
				r[j] = f(v)
			}
		}
	}
	return out
}

// Neg negates every cell.
func (w *Wide) Neg() *Wide {
	return w.Map(func(v float64) float64 { return -v })
}

// CumSum accumulates each column, treating missing cells as zero.
func (w *Wide) CumSum() *Wide {
	out := w.Like()
	for j := range w.Tickers {
		acc := 0.0
		for i := range w.Values {
			if v := w.Values[i][j]; !math.IsNaN(v) {
				acc += v
			}
			out.Values[i][j] = acc
		}
	}
	return out
}

// Add returns a + b on the union of both indexes.
func Add(a, b *Wide) *Wide {
	return combine(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b on the union of both indexes.
func Sub(a, b *Wide) *Wide {
	return combine(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns a * b on the union of both indexes.
func Mul(a, b *Wide) *Wide {
	return combine(a, b, func(x, y float64) float64 { return x * y })
}

// Div returns a / b on the union of both indexes.
// A zero denominator yields a missing cell.
func Div(a, b *Wide) *Wide {
	return combine(a, b, func(x, y float64) float64 {
		if y == 0 {
			return math.NaN()
		}
		return x / y
	})
}

// Max returns the elementwise maximum of matrices sharing one index.
// A cell is missing when every input is missing.
func Max(ws ...*Wide) *Wide {
	if len(ws) == 0 {
		return &Wide{}
	}
	out := ws[0].Clone()
	for _, w := range ws[1:] {
		a, b := Align(out, w)
		for i := range a.Values {
			for j, y := range b.Values[i] {
				x := a.Values[i][j]
				if math.IsNaN(x) || (!math.IsNaN(y) && y > x) {
					a.Values[i][j] = y
				}
			}
		}
		out = a
	}
	return out
}

// MulSeries multiplies each row by the per-date scalar s[i].
func (w *Wide) MulSeries(s []float64) *Wide {
	out := w.Clone()
	for i, r := range out.Values {
		for j := range r {
			r[j] *= s[i]
		}
	}
	return out
}

// DivSeries divides each row by the per-date scalar s[i].
// A zero divisor yields a missing row.
func (w *Wide) DivSeries(s []float64) *Wide {
	out := w.Clone()
	for i, r := range out.Values {
		for j := range r {
			if s[i] == 0 {
				r[j] = math.NaN()
				continue
			}
			r[j] /= s[i]
		}
	}
	return out
}

// Align conforms a and b to the union of their dates and tickers.
// When both already share one index they are returned as clones.
func Align(a, b *Wide) (*Wide, *Wide) {
	if sameIndex(a, b) {
		return a.Clone(), b.Clone()
	}
	dates := unionDates(a.Dates, b.Dates)
	tickers := unionTickers(a.Tickers, b.Tickers)
	return a.Reindex(dates).ReindexTickers(tickers), b.Reindex(dates).ReindexTickers(tickers)
}

func combine(a, b *Wide, f func(x, y float64) float64) *Wide {
	x, y := Align(a, b)
	for i := range x.Values {
		for j, bv := range y.Values[i] {
			av := x.Values[i][j]
			if math.IsNaN(av) || math.IsNaN(bv) {
				x.Values[i][j] = math.NaN()
				continue
			}
			x.Values[i][j] = f(av, bv)
		}
	}
	return x
}

func sameIndex(a, b *Wide) bool {
	if len(a.Dates) != len(b.Dates) || len(a.Tickers) != len(b.Tickers) {
		return false
	}
	for i := range a.Dates {
		if !a.Dates[i].Equal(b.Dates[i]) {
			return false
		}
	}
	for j := range a.Tickers {
		if a.Tickers[j] != b.Tickers[j] {
			return false
		}
	}
	return true
}

func unionDates(a, b []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(a)+len(b))
	out := make([]time.Time, 0, len(a)+len(b))
	for _, list := range [][]time.Time{a, b} {
		for _, d := range list {
			d = d.UTC()
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func unionTickers(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
