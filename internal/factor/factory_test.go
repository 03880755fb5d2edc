package factor

import (
	"errors"
	"testing"

	"quantlab-factor-library/internal/domain"
)

func TestFromSpec_DefaultNames(t *testing.T) {
	tests := []struct {
		factorType string
		want       string
	}{
		{domain.FactorTypeMomentum, "momentum_252d_21dskip"},
		{domain.FactorTypeVolatility, "volatility_60d"},
		{domain.FactorTypeMeanReversion, "mean_reversion_5d"},
		{domain.FactorTypeDollarVolume, "dollar_volume_20d"},
		{domain.FactorTypeATR, "atr_14d"},
		{domain.FactorTypeMaxDailyReturn, "max_daily_return_21d"},
		{domain.FactorTypeVWAPDeviation, "vwap_dev_21d"},
		{domain.FactorTypeOBV, "obv"},
		{domain.FactorTypeHurst, "hurst_252d"},
		{domain.FactorTypeCoskewness, "coskewness_252d"},
		{domain.FactorTypeIndustryMomentum, "industry_momentum"},
		{domain.FactorTypeBenfordD1, "benford_chi2_d1"},
		{domain.FactorTypeBenfordD2, "benford_chi2_d2"},
		{domain.FactorTypePiotroski, "piotroski_fscore"},
		{domain.FactorTypeInvestmentToAssets, "investment_to_assets"},
		{domain.FactorTypeEVToEBITDA, "ev_to_ebitda_inv"},
	}

	for _, tt := range tests {
		t.Run(tt.factorType, func(t *testing.T) {
			f, err := FromSpec(domain.FactorSpec{Type: tt.factorType})
			if err != nil {
				t.Fatalf("FromSpec failed: %v", err)
			}
			if f.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, f.Name())
			}
		})
	}
}

func TestFromSpec_Parameters(t *testing.T) {
	f, err := FromSpec(domain.FactorSpec{Type: domain.FactorTypeVolatility, Name: "vol_fast", Window: 10, MinPeriods: 5})
	if err != nil {
		t.Fatalf("FromSpec failed: %v", err)
	}

	v, ok := f.(*Volatility)
	if !ok {
		t.Fatalf("expected *Volatility, got %T", f)
	}
	if v.Name() != "vol_fast" {
		t.Errorf("expected vol_fast, got %s", v.Name())
	}
	if v.Window != 10 {
		t.Errorf("expected window 10, got %d", v.Window)
	}
	if v.MinPeriods != 5 {
		t.Errorf("expected min periods 5, got %d", v.MinPeriods)
	}
}

func TestFromSpec_ForwardFill(t *testing.T) {
	off := false
	f, err := FromSpec(domain.FactorSpec{Type: domain.FactorTypePiotroski, ForwardFill: &off})
	if err != nil {
		t.Fatalf("FromSpec failed: %v", err)
	}
	if f.(*Piotroski).ForwardFill {
		t.Error("expected forward fill disabled")
	}

	f, err = FromSpec(domain.FactorSpec{Type: domain.FactorTypePiotroski})
	if err != nil {
		t.Fatalf("FromSpec failed: %v", err)
	}
	if !f.(*Piotroski).ForwardFill {
		t.Error("expected forward fill enabled by default")
	}
}

func TestFromSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec domain.FactorSpec
		want error
	}{
		{"unknown type", domain.FactorSpec{Type: "alpha"}, ErrUnknownFactorType},
		{"negative window", domain.FactorSpec{Type: domain.FactorTypeATR, Window: -1}, ErrInvalidParameter},
		{"min periods above window", domain.FactorSpec{Type: domain.FactorTypeVolatility, Window: 10, MinPeriods: 11}, ErrInvalidParameter},
		{"short hurst window", domain.FactorSpec{Type: domain.FactorTypeHurst, Window: 10}, ErrInvalidParameter},
		{"skip not below lookback", domain.FactorSpec{Type: domain.FactorTypeIndustryMomentum, Lookback: 21, Skip: 21}, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSpec(tt.spec)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFromSpecs_DuplicateName(t *testing.T) {
	_, err := FromSpecs([]domain.FactorSpec{
		{Type: domain.FactorTypeOBV},
		{Type: domain.FactorTypeOBV},
	})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	want := []string{"momentum_12m", "volatility_60d", "mean_reversion_5d", "dollar_volume_20d"}

	got := Defaults()
	if len(got) != len(want) {
		t.Fatalf("expected %d factors, got %d", len(want), len(got))
	}
	for i, f := range got {
		if f.Name() != want[i] {
			t.Errorf("factor %d: expected %s, got %s", i, want[i], f.Name())
		}
	}
}
