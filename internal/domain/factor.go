package domain

import (
	"sort"
	"time"
)

// SectorMap maps ticker to sector label. A nil map means the sector
// dataset was unavailable for the run.
type SectorMap map[string]string

// Sectors returns the distinct sector labels in ascending order.
func (m SectorMap) Sectors() []string {
	seen := make(map[string]struct{}, len(m))
	var out []string
	for _, s := range m {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FactorValue is one non-missing cell of a clean factor in long format.
// Corresponds to factor_values table in ClickHouse.
type FactorValue struct {
	Factor string
	Date   time.Time
	Ticker string
	Value  float64
}

// FactorSpec declares a factor in configuration.
// Zero numeric parameters fall back to the factor's defaults.
type FactorSpec struct {
	Type        string `yaml:"type" validate:"required"`
	Name        string `yaml:"name"`
	Lookback    int    `yaml:"lookback" validate:"gte=0"`
	Skip        int    `yaml:"skip" validate:"gte=0"`
	Window      int    `yaml:"window" validate:"gte=0"`
	MinPeriods  int    `yaml:"min_periods" validate:"gte=0"`
	ForwardFill *bool  `yaml:"forward_fill"`
}

// Factor type constants
const (
	FactorTypeMomentum           = "momentum"
	FactorTypeVolatility         = "volatility"
	FactorTypeMeanReversion      = "mean_reversion"
	FactorTypeDollarVolume       = "dollar_volume"
	FactorTypeATR                = "atr"
	FactorTypeMaxDailyReturn     = "max_daily_return"
	FactorTypeVWAPDeviation      = "vwap_deviation"
	FactorTypeOBV                = "obv"
	FactorTypeHurst              = "hurst"
	FactorTypeCoskewness         = "coskewness"
	FactorTypeIndustryMomentum   = "industry_momentum"
	FactorTypeBenfordD1          = "benford_d1"
	FactorTypeBenfordD2          = "benford_d2"
	FactorTypePiotroski          = "piotroski"
	FactorTypeInvestmentToAssets = "investment_to_assets"
	FactorTypeEVToEBITDA         = "ev_to_ebitda"
)
