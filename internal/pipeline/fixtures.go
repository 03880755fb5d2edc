package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// Fixture describes a synthetic equity universe.
type Fixture struct {
	Tickers int
	Days    int // business days of prices
	Seed    int64
	Start   time.Time // first price date
}

// DefaultFixture returns the universe used by --use-fixtures.
func DefaultFixture() Fixture {
	return Fixture{
		Tickers: 20,
		Days:    300,
		Seed:    42,
		Start:   time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

var fixtureSectors = []string{"Technology", "Healthcare", "Financials", "Energy", "Industrials"}

// LoadFixtures populates store with a deterministic synthetic universe:
// daily prices, sectors, benchmark factors, and quarterly
// fundamentals starting one year before the first price date.
func LoadFixtures(ctx context.Context, store storage.DatasetStore, fx Fixture) error {
	datasets, err := GenerateFixtures(fx)
	if err != nil {
		return err
	}
	for _, name := range []string{
		domain.DatasetPriceDaily,
		domain.DatasetCompanyOverview,
		domain.DatasetBenchmarkFactors,
		domain.DatasetIncomeStatement,
		domain.DatasetBalanceSheet,
		domain.DatasetCashFlow,
	} {
		if err := store.InsertBulk(ctx, name, datasets[name]); err != nil {
			return fmt.Errorf("load fixture %s: %w", name, err)
		}
	}
	return nil
}

// GenerateFixtures builds the fixture datasets keyed by dataset name.
// The same Fixture always yields the same records.
func GenerateFixtures(fx Fixture) (map[string][]*domain.Record, error) {
	if fx.Tickers <= 0 || fx.Days <= 0 {
		return nil, fmt.Errorf("%w: fixture needs tickers and days", storage.ErrInvalidInput)
	}
	if fx.Start.IsZero() {
		fx.Start = DefaultFixture().Start
	}
	rng := rand.New(rand.NewSource(fx.Seed))

	tickers := make([]string, fx.Tickers)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%03d", i+1)
	}
	dates := businessDays(fx.Start, fx.Days)

	out := make(map[string][]*domain.Record, 6)
	prices, dailyReturns := fixturePrices(rng, tickers, dates)
	out[domain.DatasetPriceDaily] = prices
	out[domain.DatasetCompanyOverview] = fixtureOverview(tickers)
	out[domain.DatasetBenchmarkFactors] = fixtureBenchmark(rng, dates, dailyReturns)

	inc, bal, cf := fixtureFundamentals(rng, tickers, fx.Start.AddDate(-1, 0, 0), dates[len(dates)-1])
	out[domain.DatasetIncomeStatement] = inc
	out[domain.DatasetBalanceSheet] = bal
	out[domain.DatasetCashFlow] = cf
	return out, nil
}

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// fixturePrices simulates a geometric random walk per ticker and returns the
// records plus the cross-sectional mean return of each date.
func fixturePrices(rng *rand.Rand, tickers []string, dates []time.Time) ([]*domain.Record, []float64) {
	records := make([]*domain.Record, 0, len(tickers)*len(dates))
	sum := make([]float64, len(dates))

	for _, t := range tickers {
		price := 20 + rng.Float64()*180
		drift := (rng.Float64() - 0.5) * 0.002
		vol := 0.01 + rng.Float64()*0.02
		baseVolume := 2e5 + rng.Float64()*5e6

		for i, d := range dates {
			ret := 0.0
			if i > 0 {
				ret = drift + vol*rng.NormFloat64()
				price *= 1 + ret
			}
			sum[i] += ret
			spread := price * vol * (0.5 + rng.Float64())
			records = append(records, &domain.Record{
				Ticker: t,
				Date:   d,
				Values: map[string]float64{
					"close":          round(price, 4),
					"adjusted_close": round(price, 4),
					"high":           round(price+spread/2, 4),
					"low":            round(price-spread/2, 4),
					"volume":         math.Round(baseVolume * (0.5 + rng.Float64())),
				},
			})
		}
	}

	for i := range sum {
		sum[i] /= float64(len(tickers))
	}
	return records, sum
}

func fixtureOverview(tickers []string) []*domain.Record {
	out := make([]*domain.Record, len(tickers))
	for i, t := range tickers {
		out[i] = &domain.Record{
			Ticker: t,
			Labels: map[string]string{domain.SectorColumn: fixtureSectors[i%len(fixtureSectors)]},
		}
	}
	return out
}

// fixtureBenchmark quotes decimal factor returns with upper-case names.
func fixtureBenchmark(rng *rand.Rand, dates []time.Time, market []float64) []*domain.Record {
	const rf = 0.0001
	out := make([]*domain.Record, len(dates))
	for i, d := range dates {
		out[i] = &domain.Record{
			Date: d,
			Values: map[string]float64{
				"MKTRF": round(market[i]-rf, 6),
				"SMB":   round(rng.NormFloat64()*0.005, 6),
				"HML":   round(rng.NormFloat64()*0.005, 6),
				"RF":    rf,
			},
		}
	}
	return out
}

// fixtureFundamentals generates quarter-end statements between from and to.
func fixtureFundamentals(rng *rand.Rand, tickers []string, from, to time.Time) (inc, bal, cf []*domain.Record) {
	quarters := quarterEnds(from, to)
	label := func() map[string]string {
		return map[string]string{domain.PeriodTypeLabel: domain.PeriodTypeQuarterly}
	}

	for _, t := range tickers {
		revenue := 1e8 * math.Pow(10, rng.Float64()*2)
		assets := revenue * (1 + rng.Float64()*3)
		shares := 1e7 * (1 + rng.Float64()*20)
		growth := (rng.Float64() - 0.3) * 0.05

		for _, q := range quarters {
			revenue *= 1 + growth + rng.NormFloat64()*0.02
			assets *= 1 + growth/2 + rng.NormFloat64()*0.01
			margin := 0.2 + rng.Float64()*0.4
			opMargin := margin * (0.3 + rng.Float64()*0.4)
			gross := revenue * margin
			operating := revenue * opMargin
			net := operating * (0.6 + rng.Float64()*0.2)
			dep := revenue * 0.03

			inc = append(inc, &domain.Record{
				Ticker: t,
				Date:   q,
				Values: map[string]float64{
					"totalRevenue":                    math.Round(revenue),
					"grossProfit":                     math.Round(gross),
					"operatingIncome":                 math.Round(operating),
					"netIncome":                       math.Round(net),
					"sellingGeneralAndAdministrative": math.Round(gross - operating),
					"depreciationAndAmortization":     math.Round(dep),
					"depreciation":                    math.Round(dep * 0.8),
				},
				Labels: label(),
			})

			current := assets * (0.3 + rng.Float64()*0.2)
			longDebt := assets * (0.1 + rng.Float64()*0.2)
			shortDebt := assets * 0.05 * rng.Float64()
			bal = append(bal, &domain.Record{
				Ticker: t,
				Date:   q,
				Values: map[string]float64{
					"totalAssets":                           math.Round(assets),
					"totalCurrentAssets":                    math.Round(current),
					"totalCurrentLiabilities":               math.Round(current * (0.5 + rng.Float64()*0.6)),
					"inventory":                             math.Round(current * 0.3 * rng.Float64()),
					"propertyPlantEquipment":                math.Round(assets * (0.2 + rng.Float64()*0.2)),
					"longTermDebt":                          math.Round(longDebt),
					"shortTermDebt":                         math.Round(shortDebt),
					"shortLongTermDebtTotal":                math.Round(longDebt + shortDebt),
					"commonStockSharesOutstanding":          math.Round(shares),
					"cashAndCashEquivalentsAtCarryingValue": math.Round(current * 0.4 * rng.Float64()),
				},
				Labels: label(),
			})

			cf = append(cf, &domain.Record{
				Ticker: t,
				Date:   q,
				Values: map[string]float64{
					"operatingCashflow": math.Round(net * (0.8 + rng.Float64()*0.6)),
				},
				Labels: label(),
			})
		}
	}
	return inc, bal, cf
}

// quarterEnds lists calendar quarter ends in [from, to].
func quarterEnds(from, to time.Time) []time.Time {
	var out []time.Time
	year := from.Year()
	for {
		for _, m := range []time.Month{time.March, time.June, time.September, time.December} {
			// Day 0 of the next month is the last day of m.
			q := time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC)
			if q.Before(from) {
				continue
			}
			if q.After(to) {
				return out
			}
			out = append(out, q)
		}
		year++
	}
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
