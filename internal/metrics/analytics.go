package metrics

import (
	"math"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
)

// Analytics defaults.
const (
	DefaultQuantile = 0.2
	MinPairs        = 3   // minimum (factor, return) pairs for a date to count
	TradingDays     = 252 // annualization factor for long-short Sharpe
)

// Series is a date-indexed scalar series.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Dates) }

// Analytics holds the evaluation of one clean factor against forward returns.
type Analytics struct {
	IC        Series // per-date Spearman rank IC
	LongShort Series // per-date top-minus-bottom quantile forward return
	Summary   domain.FactorSummary
}

// Analyze evaluates a clean factor against forward returns.
// quantile is the tail share for the long-short legs (0 < q <= 0.5).
// Dates with fewer than MinPairs shared cells are skipped.
func Analyze(clean, fwd *matrix.Wide, quantile float64) *Analytics {
	if quantile <= 0 || quantile > 0.5 {
		quantile = DefaultQuantile
	}
	a := &Analytics{}
	if clean.Empty() || fwd.Empty() {
		a.Summary = summarize(a.IC, a.LongShort)
		return a
	}

	fwdCol := make(map[string]int, fwd.Cols())
	for j, t := range fwd.Tickers {
		fwdCol[t] = j
	}

	for i, d := range clean.Dates {
		fi := fwd.RowOf(d)
		if fi < 0 {
			continue
		}
		var xs, ys []float64
		for j, t := range clean.Tickers {
			k, ok := fwdCol[t]
			if !ok {
				continue
			}
			x, y := clean.Values[i][j], fwd.Values[fi][k]
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, y)
		}
		if len(xs) < MinPairs {
			continue
		}

		if ic := Spearman(xs, ys); !math.IsNaN(ic) {
			a.IC.Dates = append(a.IC.Dates, d)
			a.IC.Values = append(a.IC.Values, ic)
		}
		if ls := longShort(xs, ys, quantile); !math.IsNaN(ls) {
			a.LongShort.Dates = append(a.LongShort.Dates, d)
			a.LongShort.Values = append(a.LongShort.Values, ls)
		}
	}

	a.Summary = summarize(a.IC, a.LongShort)
	return a
}

// longShort returns mean(y | x >= upper quantile) - mean(y | x <= lower quantile).
func longShort(xs, ys []float64, q float64) float64 {
	lo := Quantile(xs, q)
	hi := Quantile(xs, 1-q)
	var top, bottom []float64
	for i, x := range xs {
		if x >= hi {
			top = append(top, ys[i])
		}
		if x <= lo {
			bottom = append(bottom, ys[i])
		}
	}
	if len(top) == 0 || len(bottom) == 0 {
		return math.NaN()
	}
	return Mean(top) - Mean(bottom)
}

func summarize(ic, ls Series) domain.FactorSummary {
	s := domain.FactorSummary{
		ICMean:   Mean(ic.Values),
		ICStd:    Stddev(ic.Values),
		NDates:   ic.Len(),
		LSMean:   Mean(ls.Values),
		LSStd:    Stddev(ls.Values),
		ICIR:     math.NaN(),
		TStat:    math.NaN(),
		HitRate:  math.NaN(),
		LSSharpe: math.NaN(),
	}
	if s.ICStd > 0 {
		s.ICIR = s.ICMean / s.ICStd
		s.TStat = s.ICIR * math.Sqrt(float64(s.NDates))
	}
	if s.NDates > 0 {
		hits := 0
		for _, v := range ic.Values {
			if v > 0 {
				hits++
			}
		}
		s.HitRate = float64(hits) / float64(s.NDates)
	}
	if s.LSStd > 0 {
		s.LSSharpe = s.LSMean / s.LSStd * math.Sqrt(TradingDays)
	}
	return s
}
