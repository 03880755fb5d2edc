package matrix

import "math"

// Rolling applies agg over a trailing window of `window` rows per column.
// agg receives the non-missing values of the window; the result is missing
// when fewer than minPeriods values are present. minPeriods <= 0 means window.
func (w *Wide) Rolling(window, minPeriods int, agg func(vals []float64) float64) *Wide {
	if minPeriods <= 0 {
		minPeriods = window
	}
	out := w.Like()
	buf := make([]float64, 0, window)
	for j := range w.Tickers {
		for i := range w.Values {
			start := i - window + 1
			if start < 0 {
				start = 0
			}
			buf = buf[:0]
			for k := start; k <= i; k++ {
				if v := w.Values[k][j]; !math.IsNaN(v) {
					buf = append(buf, v)
				}
			}
			if len(buf) < minPeriods || len(buf) == 0 {
				continue
			}
			out.Values[i][j] = agg(buf)
		}
	}
	return out
}

// RollingMean is Rolling with the arithmetic mean.
func (w *Wide) RollingMean(window, minPeriods int) *Wide {
	return w.Rolling(window, minPeriods, mean)
}

// RollingSum is Rolling with the sum.
func (w *Wide) RollingSum(window, minPeriods int) *Wide {
	return w.Rolling(window, minPeriods, sum)
}

// RollingMax is Rolling with the maximum.
func (w *Wide) RollingMax(window, minPeriods int) *Wide {
	return w.Rolling(window, minPeriods, func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			if x > m {
				m = x
			}
		}
		return m
	})
}

// RollingStd is Rolling with the sample standard deviation (n-1).
func (w *Wide) RollingStd(window, minPeriods int) *Wide {
	return w.Rolling(window, minPeriods, func(v []float64) float64 {
		if len(v) < 2 {
			return math.NaN()
		}
		m := mean(v)
		ss := 0.0
		for _, x := range v {
			ss += (x - m) * (x - m)
		}
		return math.Sqrt(ss / float64(len(v)-1))
	})
}

// RollingSeries applies a rolling mean to a single per-date series.
func RollingSeries(s []float64, window, minPeriods int) []float64 {
	if minPeriods <= 0 {
		minPeriods = window
	}
	out := make([]float64, len(s))
	for i := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var vals []float64
		for k := start; k <= i; k++ {
			if !math.IsNaN(s[k]) {
				vals = append(vals, s[k])
			}
		}
		if len(vals) < minPeriods || len(vals) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean(vals)
	}
	return out
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func mean(v []float64) float64 {
	return sum(v) / float64(len(v))
}
