package factor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// Coskewness is the rolling beta of returns to squared market returns.
type Coskewness struct {
	shifted
	name       string
	Window     int
	MinPeriods int
}

// NewCoskewness creates a Coskewness factor. minPeriods <= 0 uses max(60, window/4).
func NewCoskewness(window, minPeriods int, name string) *Coskewness {
	if minPeriods <= 0 {
		minPeriods = max(60, window/4)
	}
	if name == "" {
		name = fmt.Sprintf("coskewness_%dd", window)
	}
	return &Coskewness{name: name, Window: window, MinPeriods: minPeriods}
}

func (f *Coskewness) Name() string { return f.name }

func (f *Coskewness) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	bench, err := tables.Benchmark(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	mkt, ok := bench.Columns[domain.BenchmarkMarketColumn]
	if !ok {
		return nil, fmt.Errorf("%w: benchmark has no %s", ErrMissingInput, domain.BenchmarkMarketColumn)
	}

	rets := returns(p)
	m2 := make([]float64, rets.Rows())
	for i, d := range rets.Dates {
		m2[i] = math.NaN()
		if k := dateIndex(bench.Dates, d); k >= 0 {
			m2[i] = mkt[k] * mkt[k]
		}
	}

	m2Mean := matrix.RollingSeries(m2, f.Window, f.MinPeriods)
	m2Center := make([]float64, len(m2))
	m2Sq := make([]float64, len(m2))
	for i := range m2 {
		m2Center[i] = m2[i] - m2Mean[i]
		m2Sq[i] = m2Center[i] * m2Center[i]
	}

	retCenter := matrix.Sub(rets, rets.RollingMean(f.Window, f.MinPeriods))
	cov := retCenter.MulSeries(m2Center).RollingMean(f.Window, f.MinPeriods)
	return cov.DivSeries(matrix.RollingSeries(m2Sq, f.Window, f.MinPeriods)), nil
}

func dateIndex(dates []time.Time, d time.Time) int {
	k := sort.Search(len(dates), func(k int) bool { return !dates[k].Before(d) })
	if k < len(dates) && dates[k].Equal(d) {
		return k
	}
	return -1
}

// IndustryMomentum assigns each ticker the average
// P[t-skip]/P[t-lookback] - 1 of its sector.
type IndustryMomentum struct {
	shifted
	name     string
	Lookback int
	Skip     int
}

// NewIndustryMomentum creates an IndustryMomentum factor.
func NewIndustryMomentum(lookback, skip int, name string) *IndustryMomentum {
	if name == "" {
		name = "industry_momentum"
	}
	return &IndustryMomentum{name: name, Lookback: lookback, Skip: skip}
}

func (f *IndustryMomentum) Name() string { return f.name }

func (f *IndustryMomentum) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	sectors, err := tables.SectorMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}

	var members []string
	for _, t := range p.Tickers {
		if _, ok := sectors[t]; ok {
			members = append(members, t)
		}
	}
	p = p.ReindexTickers(members)
	ret := matrix.Div(p.Shift(f.Skip), p.Shift(f.Lookback)).Map(func(v float64) float64 { return v - 1 })

	groups := make(map[string][]int)
	for j, t := range ret.Tickers {
		groups[sectors[t]] = append(groups[sectors[t]], j)
	}

	out := ret.Like()
	for i, row := range ret.Values {
		for _, cols := range groups {
			sum, n := 0.0, 0
			for _, j := range cols {
				if !math.IsNaN(row[j]) {
					sum += row[j]
					n++
				}
			}
			if n == 0 {
				continue
			}
			for _, j := range cols {
				out.Values[i][j] = sum / float64(n)
			}
		}
	}
	return out, nil
}
