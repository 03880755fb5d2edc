package factor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage/memory"
)

// quarter returns the fiscal date of quarter q, 30 days apart starting day 10.
func quarter(q int) time.Time { return day(10 + 30*q) }

func statement(ticker string, q int, values map[string]float64) *domain.Record {
	return &domain.Record{
		Ticker: ticker,
		Date:   quarter(q),
		Values: values,
		Labels: map[string]string{domain.PeriodTypeLabel: domain.PeriodTypeQuarterly},
	}
}

func insert(t *testing.T, store *memory.DatasetStore, dataset string, recs ...*domain.Record) {
	t.Helper()
	require.NoError(t, store.InsertBulk(context.Background(), dataset, recs))
}

func TestBenfordDistributions(t *testing.T) {
	sum := func(p []float64) float64 {
		s := 0.0
		for _, v := range p {
			s += v
		}
		return s
	}
	assert.InDelta(t, 1, sum(benfordFirst()), 1e-12)
	assert.InDelta(t, 1, sum(benfordSecond()), 1e-12)
	assert.InDelta(t, math.Log10(2), benfordFirst()[0], 1e-12)
}

func TestDigitCounts(t *testing.T) {
	vals := []float64{123, 0.5, 0, -45, 9, math.NaN()}

	first := digitCounts(vals, 1, 9)
	assert.Equal(t, []float64{1, 0, 0, 1, 0, 0, 0, 0, 1}, first)

	second := digitCounts(vals, 2, 10)
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 1, 0, 0, 0, 0}, second)
}

func TestChiSquare(t *testing.T) {
	assert.True(t, math.IsNaN(chiSquare([]float64{0, 0}, []float64{0.5, 0.5})))
	assert.InDelta(t, 0, chiSquare([]float64{5, 5}, []float64{0.5, 0.5}), 1e-12)
	// (8-5)^2/5 + (2-5)^2/5
	assert.InDelta(t, 3.6, chiSquare([]float64{8, 2}, []float64{0.5, 0.5}), 1e-12)
}

func TestBenford_AlignsToPriceDates(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 60, trending)
	insert(t, store, domain.DatasetIncomeStatement,
		statement("A", 0, map[string]float64{"totalRevenue": 1000, "netIncome": 200}),
		statement("A", 1, map[string]float64{"totalRevenue": 1100, "netIncome": 300}),
	)
	insert(t, store, domain.DatasetBalanceSheet,
		statement("A", 0, map[string]float64{"totalAssets": 5000}),
		statement("A", 1, map[string]float64{"totalAssets": 6000}),
	)

	raw, err := NewBenford(1, true, "").ComputeRaw(ctx, loader(store))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(raw.Get(day(9), "A")))
	q0 := raw.Get(quarter(0), "A")
	require.False(t, math.IsNaN(q0))
	assert.Equal(t, q0, raw.Get(quarter(1).AddDate(0, 0, -1), "A"), "forward filled")
	assert.False(t, math.IsNaN(raw.Get(day(59), "A")))

	unfilled, err := NewBenford(1, false, "").ComputeRaw(ctx, loader(store))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(unfilled.Get(quarter(0).AddDate(0, 0, 1), "A")))
}

func TestPiotroski_Score(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 200, trending)

	var inc, bal, cf []*domain.Record
	for q := 0; q < 5; q++ {
		inc = append(inc, statement("A", q, map[string]float64{
			"netIncome": 50, "totalRevenue": 500, "grossProfit": 200,
		}))
		bal = append(bal, statement("A", q, map[string]float64{
			"totalAssets": 1000, "totalCurrentAssets": 300, "totalCurrentLiabilities": 200,
			"longTermDebt": 400, "commonStockSharesOutstanding": 100,
		}))
		cf = append(cf, statement("A", q, map[string]float64{"operatingCashflow": 80}))
	}
	// quarter 4 improves on quarter 0 in every comparison
	inc[4].Values = map[string]float64{"netIncome": 60, "totalRevenue": 520, "grossProfit": 240}
	bal[4].Values = map[string]float64{
		"totalAssets": 1000, "totalCurrentAssets": 330, "totalCurrentLiabilities": 200,
		"longTermDebt": 350, "commonStockSharesOutstanding": 100,
	}
	cf[4].Values = map[string]float64{"operatingCashflow": 90}
	insert(t, store, domain.DatasetIncomeStatement, inc...)
	insert(t, store, domain.DatasetBalanceSheet, bal...)
	insert(t, store, domain.DatasetCashFlow, cf...)

	raw, err := NewPiotroski(true, "").ComputeRaw(ctx, loader(store))
	require.NoError(t, err)

	assert.Equal(t, 3.0, raw.Get(quarter(0), "A"))
	assert.Equal(t, 3.0, raw.Get(quarter(3), "A"))
	assert.Equal(t, 9.0, raw.Get(quarter(4), "A"))
	assert.Equal(t, 9.0, raw.Get(day(199), "A"))
}

func TestPiotroski_RequiresPeriodType(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 10, trending)
	unlabelled := &domain.Record{Ticker: "A", Date: day(1), Values: map[string]float64{"netIncome": 1}}
	insert(t, store, domain.DatasetIncomeStatement, unlabelled)
	insert(t, store, domain.DatasetBalanceSheet, unlabelled)
	insert(t, store, domain.DatasetCashFlow, unlabelled)

	_, err := NewPiotroski(true, "").ComputeRaw(ctx, loader(store))

	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestInvestmentToAssets(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 200, trending)
	var bal []*domain.Record
	for q := 0; q < 5; q++ {
		bal = append(bal, statement("A", q, map[string]float64{
			"propertyPlantEquipment": 80 + 10*float64(q),
			"inventory":              20 + 2.5*float64(q),
			"totalAssets":            1000,
		}))
	}
	// annual reports are ignored
	bal = append(bal, &domain.Record{
		Ticker: "A", Date: quarter(4), Values: map[string]float64{"propertyPlantEquipment": 1e9, "inventory": 0, "totalAssets": 1},
		Labels: map[string]string{domain.PeriodTypeLabel: "annual"},
	})
	insert(t, store, domain.DatasetBalanceSheet, bal...)

	raw, err := NewInvestmentToAssets(true, "").ComputeRaw(ctx, loader(store))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(raw.Get(quarter(3), "A")))
	assert.InDelta(t, 0.05, raw.Get(quarter(4), "A"), 1e-12)
}

func TestInvestmentToAssets_MissingColumn(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 10, trending)
	insert(t, store, domain.DatasetBalanceSheet, statement("A", 0, map[string]float64{"totalAssets": 1}))

	_, err := NewInvestmentToAssets(true, "").ComputeRaw(ctx, loader(store))

	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestEVToEBITDA(t *testing.T) {
	ctx := context.Background()
	store := priceStore(t, []string{"A"}, 40, func(_, _ int) float64 { return 20 })
	insert(t, store, domain.DatasetIncomeStatement,
		statement("A", 0, map[string]float64{"operatingIncome": 10, "depreciationAndAmortization": 5}))
	insert(t, store, domain.DatasetBalanceSheet,
		statement("A", 0, map[string]float64{
			"commonStockSharesOutstanding":          10,
			"shortTermDebt":                         30,
			"longTermDebt":                          20,
			"cashAndCashEquivalentsAtCarryingValue": 50,
		}))

	raw, err := NewEVToEBITDA(true, "").ComputeRaw(ctx, loader(store))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(raw.Get(day(9), "A")))
	// EV = 20*10 + 50 - 50 = 200; EBITDA = 15
	assert.InDelta(t, 0.075, raw.Get(quarter(0), "A"), 1e-12)
	assert.InDelta(t, 0.075, raw.Get(day(39), "A"), 1e-12)
}
