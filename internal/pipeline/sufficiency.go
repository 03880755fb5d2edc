package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// SufficiencyCheck represents one input sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // missing inputs
}

// Thresholds for the sufficiency checks.
type Thresholds struct {
	MinDates    int     // price dates
	MinTickers  int     // tickers with at least one price
	MinCoverage float64 // share of non-missing price cells
}

// DefaultThresholds returns thresholds for a daily equity universe.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDates:    60,
		MinTickers:  10,
		MinCoverage: 0.5,
	}
}

// SufficiencyChecker validates input coverage before a batch run.
type SufficiencyChecker struct {
	tables     provider.TableProvider
	thresholds Thresholds
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(tables provider.TableProvider, thresholds Thresholds) *SufficiencyChecker {
	return &SufficiencyChecker{tables: tables, thresholds: thresholds}
}

// Check runs all checks. Missing datasets fail their check; other load errors abort.
func (c *SufficiencyChecker) Check(ctx context.Context) (*SufficiencyResult, error) {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 6),
		AllPass: true,
		Errors:  []string{},
	}
	add := func(check SufficiencyCheck) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
	}

	price, err := c.tables.PriceWide(ctx)
	if err != nil {
		if !isMissing(err) {
			return nil, fmt.Errorf("load prices: %w", err)
		}
		result.Errors = append(result.Errors, err.Error())
	}
	add(c.checkDates(price))
	add(c.checkTickers(price))
	add(c.checkCoverage(price))

	// Check 4: Sector map
	sectors, err := c.tables.SectorMap(ctx)
	if err != nil && !isMissing(err) {
		return nil, fmt.Errorf("load sector map: %w", err)
	}
	add(checkSectors(sectors, price))

	// Check 5: Benchmark factors
	bench, err := c.tables.Benchmark(ctx)
	if err != nil && !isMissing(err) {
		return nil, fmt.Errorf("load benchmark: %w", err)
	}
	add(checkBenchmark(bench))

	// Check 6: Fundamentals datasets
	check, err := c.checkFundamentals(ctx)
	if err != nil {
		return nil, err
	}
	add(check)

	return result, nil
}

func isMissing(err error) bool {
	return errors.Is(err, provider.ErrMissingDataset) || errors.Is(err, provider.ErrMissingColumn)
}

// checkDates: price dates >= MinDates.
func (c *SufficiencyChecker) checkDates(price *matrix.Wide) SufficiencyCheck {
	n := 0
	if price != nil {
		n = price.Rows()
	}
	return SufficiencyCheck{
		Name:      "Price dates",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinDates),
		Actual:    fmt.Sprintf("%d", n),
		Pass:      n > 0 && n >= c.thresholds.MinDates,
	}
}

// checkTickers: tickers with any price >= MinTickers.
func (c *SufficiencyChecker) checkTickers(price *matrix.Wide) SufficiencyCheck {
	n := 0
	if price != nil {
		for j := range price.Tickers {
			for i := range price.Values {
				if !math.IsNaN(price.Values[i][j]) {
					n++
					break
				}
			}
		}
	}
	return SufficiencyCheck{
		Name:      "Priced tickers",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinTickers),
		Actual:    fmt.Sprintf("%d", n),
		Pass:      n > 0 && n >= c.thresholds.MinTickers,
	}
}

// checkCoverage: share of non-missing price cells >= MinCoverage.
func (c *SufficiencyChecker) checkCoverage(price *matrix.Wide) SufficiencyCheck {
	var total, present int
	if price != nil {
		for _, row := range price.Values {
			for _, v := range row {
				total++
				if !math.IsNaN(v) {
					present++
				}
			}
		}
	}
	share := 0.0
	if total > 0 {
		share = float64(present) / float64(total)
	}
	return SufficiencyCheck{
		Name:      "Price coverage",
		Threshold: fmt.Sprintf(">= %.0f%%", c.thresholds.MinCoverage*100),
		Actual:    fmt.Sprintf("%.1f%%", share*100),
		Pass:      total > 0 && share >= c.thresholds.MinCoverage,
	}
}

// checkSectors: at least one priced ticker has a sector.
func checkSectors(sectors domain.SectorMap, price *matrix.Wide) SufficiencyCheck {
	mapped, total := 0, 0
	if price != nil {
		total = len(price.Tickers)
		for _, t := range price.Tickers {
			if _, ok := sectors[t]; ok {
				mapped++
			}
		}
	}
	return SufficiencyCheck{
		Name:      "Sector map",
		Threshold: "> 0 mapped tickers",
		Actual:    fmt.Sprintf("%d/%d", mapped, total),
		Pass:      mapped > 0,
	}
}

// checkBenchmark: benchmark factors carry the market column.
func checkBenchmark(bench *domain.BenchmarkSeries) SufficiencyCheck {
	check := SufficiencyCheck{
		Name:      "Benchmark factors",
		Threshold: "has " + domain.BenchmarkMarketColumn,
		Actual:    "missing",
	}
	if bench == nil {
		return check
	}
	if _, ok := bench.Columns[domain.BenchmarkMarketColumn]; ok {
		check.Pass = true
	}
	check.Actual = fmt.Sprintf("%d dates, %d columns", len(bench.Dates), len(bench.Columns))
	return check
}

// checkFundamentals: all three statements are loadable.
func (c *SufficiencyChecker) checkFundamentals(ctx context.Context) (SufficiencyCheck, error) {
	datasets := []string{domain.DatasetIncomeStatement, domain.DatasetBalanceSheet, domain.DatasetCashFlow}
	found := 0
	for _, ds := range datasets {
		records, err := c.tables.LoadLong(ctx, ds)
		if err != nil {
			if isMissing(err) {
				continue
			}
			return SufficiencyCheck{}, fmt.Errorf("load %s: %w", ds, err)
		}
		if len(records) > 0 {
			found++
		}
	}
	return SufficiencyCheck{
		Name:      "Fundamentals datasets",
		Threshold: fmt.Sprintf("%d/%d", len(datasets), len(datasets)),
		Actual:    fmt.Sprintf("%d/%d", found, len(datasets)),
		Pass:      found == len(datasets),
	}, nil
}
