package factor

import (
	"context"
	"fmt"
	"math"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// Momentum is P[t-skip]/P[t-lookback-skip] - 1.
type Momentum struct {
	shifted
	name     string
	Lookback int
	Skip     int
}

// NewMomentum creates a Momentum factor. An empty name derives one from the parameters.
func NewMomentum(lookback, skip int, name string) *Momentum {
	if name == "" {
		name = fmt.Sprintf("momentum_%dd_%ddskip", lookback, skip)
	}
	return &Momentum{name: name, Lookback: lookback, Skip: skip}
}

func (f *Momentum) Name() string { return f.name }

func (f *Momentum) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	recent := p.Shift(f.Skip)
	past := p.Shift(f.Lookback + f.Skip)
	return matrix.Div(recent, past).Map(func(v float64) float64 { return v - 1 }), nil
}

// Volatility is the rolling sample std of daily returns.
type Volatility struct {
	shifted
	name       string
	Window     int
	MinPeriods int
}

// NewVolatility creates a Volatility factor. minPeriods <= 0 uses max(20, window/2).
func NewVolatility(window, minPeriods int, name string) *Volatility {
	if minPeriods <= 0 {
		minPeriods = max(20, window/2)
	}
	if name == "" {
		name = fmt.Sprintf("volatility_%dd", window)
	}
	return &Volatility{name: name, Window: window, MinPeriods: minPeriods}
}

func (f *Volatility) Name() string { return f.name }

func (f *Volatility) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	return returns(p).RollingStd(f.Window, f.MinPeriods), nil
}

// MeanReversion is the negated lookback return.
type MeanReversion struct {
	shifted
	name     string
	Lookback int
}

// NewMeanReversion creates a MeanReversion factor.
func NewMeanReversion(lookback int, name string) *MeanReversion {
	if name == "" {
		name = fmt.Sprintf("mean_reversion_%dd", lookback)
	}
	return &MeanReversion{name: name, Lookback: lookback}
}

func (f *MeanReversion) Name() string { return f.name }

func (f *MeanReversion) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	return p.PctChange(f.Lookback).Neg(), nil
}

// DollarVolume is the rolling mean of price * volume.
type DollarVolume struct {
	shifted
	name       string
	Window     int
	MinPeriods int
}

// NewDollarVolume creates a DollarVolume factor. minPeriods <= 0 uses max(5, window/2).
func NewDollarVolume(window, minPeriods int, name string) *DollarVolume {
	if minPeriods <= 0 {
		minPeriods = max(5, window/2)
	}
	if name == "" {
		name = fmt.Sprintf("dollar_volume_%dd", window)
	}
	return &DollarVolume{name: name, Window: window, MinPeriods: minPeriods}
}

func (f *DollarVolume) Name() string { return f.name }

func (f *DollarVolume) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	vol, err := column(ctx, tables, domain.DatasetPriceDaily, "volume")
	if err != nil {
		return nil, err
	}
	return matrix.Mul(p, vol).RollingMean(f.Window, f.MinPeriods), nil
}

// MaxDailyReturn is the largest daily return over the window.
type MaxDailyReturn struct {
	shifted
	name   string
	Window int
}

// NewMaxDailyReturn creates a MaxDailyReturn factor.
func NewMaxDailyReturn(window int, name string) *MaxDailyReturn {
	if name == "" {
		name = fmt.Sprintf("max_daily_return_%dd", window)
	}
	return &MaxDailyReturn{name: name, Window: window}
}

func (f *MaxDailyReturn) Name() string { return f.name }

func (f *MaxDailyReturn) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	return returns(p).RollingMax(f.Window, f.Window), nil
}

// hurstMinObs is the fewest returns a rescaled-range estimate accepts.
const hurstMinObs = 20

// Hurst is a rolling rescaled-range Hurst exponent of daily returns.
type Hurst struct {
	shifted
	name   string
	Window int
}

// NewHurst creates a Hurst factor.
func NewHurst(window int, name string) *Hurst {
	if name == "" {
		name = fmt.Sprintf("hurst_%dd", window)
	}
	return &Hurst{name: name, Window: window}
}

func (f *Hurst) Name() string { return f.name }

func (f *Hurst) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	return returns(p).Rolling(f.Window, f.Window, rescaledRange), nil
}

// rescaledRange returns log(R/S)/log(n), or NaN when the estimate is undefined.
func rescaledRange(s []float64) float64 {
	n := len(s)
	if n < hurstMinObs {
		return math.NaN()
	}
	mean := 0.0
	for _, v := range s {
		mean += v
	}
	mean /= float64(n)

	cum, lo, hi, ss := 0.0, math.Inf(1), math.Inf(-1), 0.0
	for _, v := range s {
		d := v - mean
		cum += d
		lo = math.Min(lo, cum)
		hi = math.Max(hi, cum)
		ss += d * d
	}
	r := hi - lo
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 || r <= 0 {
		return math.NaN()
	}
	return math.Log(r/sd) / math.Log(float64(n))
}
