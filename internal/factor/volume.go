package factor

import (
	"context"
	"fmt"
	"math"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// ATR is the rolling mean of the true range
// max(high-low, |high-prevClose|, |low-prevClose|).
type ATR struct {
	shifted
	name   string
	Window int
}

// NewATR creates an ATR factor.
func NewATR(window int, name string) *ATR {
	if name == "" {
		name = fmt.Sprintf("atr_%dd", window)
	}
	return &ATR{name: name, Window: window}
}

func (f *ATR) Name() string { return f.name }

func (f *ATR) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	closes, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	hi, err := column(ctx, tables, domain.DatasetPriceDaily, "high")
	if err != nil {
		return nil, err
	}
	lo, err := column(ctx, tables, domain.DatasetPriceDaily, "low")
	if err != nil {
		return nil, err
	}

	prev := closes.Shift(1)
	spread := matrix.Sub(hi, lo)
	tr := matrix.Max(
		spread,
		matrix.Sub(hi, prev).Map(math.Abs),
		matrix.Sub(lo, prev).Map(math.Abs),
	)
	// no true range without a high/low spread
	tr, spread = matrix.Align(tr, spread)
	for i := range tr.Values {
		for j, s := range spread.Values[i] {
			if math.IsNaN(s) {
				tr.Values[i][j] = math.NaN()
			}
		}
	}
	return tr.RollingMean(f.Window, f.Window), nil
}

// VWAPDeviation is close / rolling VWAP - 1.
type VWAPDeviation struct {
	shifted
	name   string
	Window int
}

// NewVWAPDeviation creates a VWAPDeviation factor.
func NewVWAPDeviation(window int, name string) *VWAPDeviation {
	if name == "" {
		name = fmt.Sprintf("vwap_dev_%dd", window)
	}
	return &VWAPDeviation{name: name, Window: window}
}

func (f *VWAPDeviation) Name() string { return f.name }

func (f *VWAPDeviation) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	closes, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	vol, err := column(ctx, tables, domain.DatasetPriceDaily, "volume")
	if err != nil {
		return nil, err
	}
	dollar := matrix.Mul(closes, vol).RollingSum(f.Window, f.Window)
	vwap := matrix.Div(dollar, vol.RollingSum(f.Window, f.Window))
	return matrix.Div(closes, vwap).Map(func(v float64) float64 { return v - 1 }), nil
}

// OBV is on-balance volume: the running sum of sign(return) * volume.
type OBV struct {
	shifted
	name string
}

// NewOBV creates an OBV factor.
func NewOBV(name string) *OBV {
	if name == "" {
		name = "obv"
	}
	return &OBV{name: name}
}

func (f *OBV) Name() string { return f.name }

func (f *OBV) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	closes, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	vol, err := column(ctx, tables, domain.DatasetPriceDaily, "volume")
	if err != nil {
		return nil, err
	}
	sign := returns(closes).Map(func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	})
	return matrix.Mul(vol, sign).CumSum(), nil
}
