package factor

import (
	"errors"
	"fmt"

	"quantlab-factor-library/internal/domain"
)

// Factory errors
var (
	ErrUnknownFactorType = errors.New("unknown factor type")
	ErrInvalidParameter  = errors.New("invalid factor parameter")
)

// Parameter defaults applied when a FactorSpec leaves a field at zero.
const (
	DefaultMomentumLookback         = 252
	DefaultMomentumSkip             = 21
	DefaultVolatilityWindow         = 60
	DefaultMeanReversionLookback    = 5
	DefaultDollarVolumeWindow       = 20
	DefaultATRWindow                = 14
	DefaultMaxDailyReturnWindow     = 21
	DefaultVWAPWindow               = 21
	DefaultHurstWindow              = 252
	DefaultCoskewnessWindow         = 252
	DefaultIndustryMomentumLookback = 126
	DefaultIndustryMomentumSkip     = 21
)

// Defaults returns the standard factor set.
func Defaults() []Factor {
	return []Factor{
		NewMomentum(252, 21, "momentum_12m"),
		NewVolatility(60, 0, "volatility_60d"),
		NewMeanReversion(5, "mean_reversion_5d"),
		NewDollarVolume(20, 0, "dollar_volume_20d"),
	}
}

// FromSpec creates a Factor from domain.FactorSpec.
// Zero parameters take the type's defaults.
func FromSpec(spec domain.FactorSpec) (Factor, error) {
	if spec.Lookback < 0 || spec.Skip < 0 || spec.Window < 0 || spec.MinPeriods < 0 {
		return nil, fmt.Errorf("%w: negative parameter for %s", ErrInvalidParameter, spec.Type)
	}
	ffill := spec.ForwardFill == nil || *spec.ForwardFill

	switch spec.Type {
	case domain.FactorTypeMomentum:
		return NewMomentum(or(spec.Lookback, DefaultMomentumLookback), or(spec.Skip, DefaultMomentumSkip), spec.Name), nil
	case domain.FactorTypeVolatility:
		w := or(spec.Window, DefaultVolatilityWindow)
		if err := checkMinPeriods(spec, w); err != nil {
			return nil, err
		}
		return NewVolatility(w, spec.MinPeriods, spec.Name), nil
	case domain.FactorTypeMeanReversion:
		return NewMeanReversion(or(spec.Lookback, DefaultMeanReversionLookback), spec.Name), nil
	case domain.FactorTypeDollarVolume:
		w := or(spec.Window, DefaultDollarVolumeWindow)
		if err := checkMinPeriods(spec, w); err != nil {
			return nil, err
		}
		return NewDollarVolume(w, spec.MinPeriods, spec.Name), nil
	case domain.FactorTypeATR:
		return NewATR(or(spec.Window, DefaultATRWindow), spec.Name), nil
	case domain.FactorTypeMaxDailyReturn:
		return NewMaxDailyReturn(or(spec.Window, DefaultMaxDailyReturnWindow), spec.Name), nil
	case domain.FactorTypeVWAPDeviation:
		return NewVWAPDeviation(or(spec.Window, DefaultVWAPWindow), spec.Name), nil
	case domain.FactorTypeOBV:
		return NewOBV(spec.Name), nil
	case domain.FactorTypeHurst:
		w := or(spec.Window, DefaultHurstWindow)
		if w < hurstMinObs {
			return nil, fmt.Errorf("%w: hurst window %d below %d", ErrInvalidParameter, w, hurstMinObs)
		}
		return NewHurst(w, spec.Name), nil
	case domain.FactorTypeCoskewness:
		w := or(spec.Window, DefaultCoskewnessWindow)
		if err := checkMinPeriods(spec, w); err != nil {
			return nil, err
		}
		return NewCoskewness(w, spec.MinPeriods, spec.Name), nil
	case domain.FactorTypeIndustryMomentum:
		lookback := or(spec.Lookback, DefaultIndustryMomentumLookback)
		skip := or(spec.Skip, DefaultIndustryMomentumSkip)
		if skip >= lookback {
			return nil, fmt.Errorf("%w: industry momentum skip %d must be below lookback %d", ErrInvalidParameter, skip, lookback)
		}
		return NewIndustryMomentum(lookback, skip, spec.Name), nil
	case domain.FactorTypeBenfordD1:
		return NewBenford(1, ffill, spec.Name), nil
	case domain.FactorTypeBenfordD2:
		return NewBenford(2, ffill, spec.Name), nil
	case domain.FactorTypePiotroski:
		return NewPiotroski(ffill, spec.Name), nil
	case domain.FactorTypeInvestmentToAssets:
		return NewInvestmentToAssets(ffill, spec.Name), nil
	case domain.FactorTypeEVToEBITDA:
		return NewEVToEBITDA(ffill, spec.Name), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFactorType, spec.Type)
	}
}

// FromSpecs builds factors in order, failing on the first invalid spec
// or a duplicate name.
func FromSpecs(specs []domain.FactorSpec) ([]Factor, error) {
	out := make([]Factor, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		f, err := FromSpec(s)
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", i, err)
		}
		if seen[f.Name()] {
			return nil, fmt.Errorf("%w: duplicate factor name %q", ErrInvalidParameter, f.Name())
		}
		seen[f.Name()] = true
		out = append(out, f)
	}
	return out, nil
}

func checkMinPeriods(spec domain.FactorSpec, window int) error {
	if spec.MinPeriods > window {
		return fmt.Errorf("%w: min_periods %d exceeds window %d", ErrInvalidParameter, spec.MinPeriods, window)
	}
	return nil
}

func or(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
