package factor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// quartersBack is the comparison lag for year-over-year quarterly changes.
const quartersBack = 4

// fundamental carries the forward-fill setting shared by statement-based factors.
type fundamental struct {
	shifted
	name        string
	ForwardFill bool
}

func (f *fundamental) Name() string { return f.name }

// onPriceDates aligns a fiscal-date matrix to the price calendar.
func (f *fundamental) onPriceDates(ctx context.Context, tables provider.TableProvider, w *matrix.Wide) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	out := w.AsOf(p.Dates)
	if f.ForwardFill {
		out = out.FFill()
	}
	return out, nil
}

// quarterly loads a statement dataset restricted to quarterly rows.
// Without a period_type label the dataset cannot be split and is rejected.
func quarterly(ctx context.Context, tables provider.TableProvider, dataset string) ([]*domain.Record, error) {
	recs, err := records(ctx, tables, dataset)
	if err != nil {
		return nil, err
	}
	if !domain.HasLabel(recs, domain.PeriodTypeLabel) {
		return nil, fmt.Errorf("%w: %s missing %s", ErrMissingInput, dataset, domain.PeriodTypeLabel)
	}
	return domain.FilterPeriod(recs, domain.PeriodTypeQuarterly), nil
}

// panel holds per-ticker statement rows keyed by fiscal date, with
// duplicate (ticker, date) values averaged per column.
type panel struct {
	rows  map[string]map[time.Time]map[string]float64
	dates map[string][]time.Time
}

func newPanel(recs []*domain.Record, columns ...string) *panel {
	sums := make(map[string]map[time.Time]map[string]float64)
	counts := make(map[string]map[time.Time]map[string]int)
	for _, r := range recs {
		if r.Ticker == "" {
			continue
		}
		if sums[r.Ticker] == nil {
			sums[r.Ticker] = make(map[time.Time]map[string]float64)
			counts[r.Ticker] = make(map[time.Time]map[string]int)
		}
		if sums[r.Ticker][r.Date] == nil {
			sums[r.Ticker][r.Date] = make(map[string]float64)
			counts[r.Ticker][r.Date] = make(map[string]int)
		}
		for _, c := range columns {
			v, ok := r.Values[c]
			if !ok || math.IsNaN(v) {
				continue
			}
			sums[r.Ticker][r.Date][c] += v
			counts[r.Ticker][r.Date][c]++
		}
	}

	p := &panel{rows: sums, dates: make(map[string][]time.Time, len(sums))}
	for t, byDate := range sums {
		for d, vals := range byDate {
			for c, n := range counts[t][d] {
				vals[c] /= float64(n)
			}
			p.dates[t] = append(p.dates[t], d)
		}
		ds := p.dates[t]
		sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
	}
	return p
}

func (p *panel) tickers() []string {
	out := make([]string, 0, len(p.dates))
	for t := range p.dates {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// value returns the column at (ticker, date) or NaN.
func (p *panel) value(ticker string, date time.Time, column string) float64 {
	if v, ok := p.rows[ticker][date][column]; ok {
		return v
	}
	return math.NaN()
}

// series returns a column over the ticker's own fiscal dates.
func (p *panel) series(ticker, column string) []float64 {
	out := make([]float64, len(p.dates[ticker]))
	for i, d := range p.dates[ticker] {
		out[i] = p.value(ticker, d, column)
	}
	return out
}

// lag returns s shifted back n observations.
func lag(s []float64, n int) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = math.NaN()
		if i-n >= 0 {
			out[i] = s[i-n]
		}
	}
	return out
}

func ratio(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a / b
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Benford digit-test inputs.
var (
	benfordIncomeColumns = []string{
		"totalRevenue", "grossProfit", "operatingIncome", "netIncome", "sellingGeneralAndAdministrative",
	}
	benfordBalanceColumns = []string{
		"totalAssets", "totalCurrentAssets", "totalCurrentLiabilities", "inventory", "propertyPlantEquipment",
	}
)

// Benford is the chi-square distance of statement figures' leading digits
// from Benford's law. Digit selects the first (1) or second (2) digit test.
type Benford struct {
	fundamental
	Digit int
}

// NewBenford creates a Benford factor for digit 1 or 2.
func NewBenford(digit int, forwardFill bool, name string) *Benford {
	if name == "" {
		name = fmt.Sprintf("benford_chi2_d%d", digit)
	}
	return &Benford{fundamental: fundamental{name: name, ForwardFill: forwardFill}, Digit: digit}
}

func (f *Benford) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	type key struct {
		ticker string
		date   time.Time
	}
	figures := make(map[key][]float64)
	collect := func(dataset string, columns []string) error {
		recs, err := records(ctx, tables, dataset)
		if err != nil {
			return err
		}
		if domain.HasLabel(recs, domain.PeriodTypeLabel) {
			recs = domain.FilterPeriod(recs, domain.PeriodTypeQuarterly)
		}
		for _, r := range recs {
			if r.Ticker == "" {
				continue
			}
			for _, c := range columns {
				if v, ok := r.Values[c]; ok && !math.IsNaN(v) {
					k := key{r.Ticker, r.Date}
					figures[k] = append(figures[k], v)
				}
			}
		}
		return nil
	}
	if err := collect(domain.DatasetIncomeStatement, benfordIncomeColumns); err != nil {
		return nil, err
	}
	if err := collect(domain.DatasetBalanceSheet, benfordBalanceColumns); err != nil {
		return nil, err
	}

	expected := benfordFirst()
	if f.Digit == 2 {
		expected = benfordSecond()
	}
	cells := make([]matrix.Cell, 0, len(figures))
	for k, vals := range figures {
		chi := chiSquare(digitCounts(vals, f.Digit, len(expected)), expected)
		if !math.IsNaN(chi) {
			cells = append(cells, matrix.Cell{Date: k.date, Ticker: k.ticker, Value: chi})
		}
	}
	return f.onPriceDates(ctx, tables, matrix.Unstack(cells))
}

// benfordFirst returns P(d) for first digits 1..9.
func benfordFirst() []float64 {
	p := make([]float64, 9)
	for d := 1; d <= 9; d++ {
		p[d-1] = math.Log10(1 + 1/float64(d))
	}
	return p
}

// benfordSecond returns P(d) for second digits 0..9.
func benfordSecond() []float64 {
	p := make([]float64, 10)
	for d := 0; d <= 9; d++ {
		for k := 1; k <= 9; k++ {
			p[d] += math.Log10(1 + 1/float64(10*k+d))
		}
	}
	return p
}

// digitCounts tallies the first or second digit of |v| truncated to an
// integer. Zeros and values without the digit are skipped.
func digitCounts(vals []float64, digit, bins int) []float64 {
	counts := make([]float64, bins)
	for _, v := range vals {
		v = math.Trunc(math.Abs(v))
		if math.IsNaN(v) || v < 1 || v >= math.MaxInt64 {
			continue
		}
		s := strconv.FormatInt(int64(v), 10)
		if len(s) < digit {
			continue
		}
		d := int(s[digit-1] - '0')
		if digit == 1 {
			d--
		}
		counts[d]++
	}
	return counts
}

func chiSquare(observed, expectedProb []float64) float64 {
	total := 0.0
	for _, o := range observed {
		total += o
	}
	if total == 0 {
		return math.NaN()
	}
	chi := 0.0
	for i, o := range observed {
		e := expectedProb[i] * total
		if e > 0 {
			chi += (o - e) * (o - e) / e
		}
	}
	return chi
}

// Piotroski is the 0-9 F-score on quarterly statements with
// four-quarter comparisons.
type Piotroski struct {
	fundamental
}

// NewPiotroski creates a Piotroski factor.
func NewPiotroski(forwardFill bool, name string) *Piotroski {
	if name == "" {
		name = "piotroski_fscore"
	}
	return &Piotroski{fundamental{name: name, ForwardFill: forwardFill}}
}

func (f *Piotroski) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	inc, err := quarterly(ctx, tables, domain.DatasetIncomeStatement)
	if err != nil {
		return nil, err
	}
	bal, err := quarterly(ctx, tables, domain.DatasetBalanceSheet)
	if err != nil {
		return nil, err
	}
	cf, err := quarterly(ctx, tables, domain.DatasetCashFlow)
	if err != nil {
		return nil, err
	}

	incP := newPanel(inc, "netIncome", "totalRevenue", "grossProfit")
	balP := newPanel(bal, "totalAssets", "totalCurrentAssets", "totalCurrentLiabilities",
		"longTermDebt", "commonStockSharesOutstanding")
	cfP := newPanel(cf, "operatingCashflow")

	var cells []matrix.Cell
	for _, t := range incP.tickers() {
		dates := incP.dates[t]
		n := len(dates)
		roa := make([]float64, n)
		cfo := make([]float64, n)
		debt := make([]float64, n)
		current := make([]float64, n)
		shares := make([]float64, n)
		margin := make([]float64, n)
		turnover := make([]float64, n)
		for i, d := range dates {
			assets := balP.value(t, d, "totalAssets")
			revenue := incP.value(t, d, "totalRevenue")
			roa[i] = ratio(incP.value(t, d, "netIncome"), assets)
			cfo[i] = ratio(cfP.value(t, d, "operatingCashflow"), assets)
			debt[i] = balP.value(t, d, "longTermDebt")
			current[i] = ratio(balP.value(t, d, "totalCurrentAssets"), balP.value(t, d, "totalCurrentLiabilities"))
			shares[i] = balP.value(t, d, "commonStockSharesOutstanding")
			margin[i] = ratio(incP.value(t, d, "grossProfit"), revenue)
			turnover[i] = ratio(revenue, assets)
		}
		roaPrev, debtPrev, currentPrev := lag(roa, quartersBack), lag(debt, quartersBack), lag(current, quartersBack)
		sharesPrev, marginPrev, turnoverPrev := lag(shares, quartersBack), lag(margin, quartersBack), lag(turnover, quartersBack)

		for i, d := range dates {
			flags := []bool{
				roa[i] > 0,
				roa[i] > roaPrev[i],
				cfo[i] > 0,
				cfo[i]-roa[i] > 0,
				debt[i] < debtPrev[i],
				current[i] > currentPrev[i],
				shares[i] <= sharesPrev[i],
				margin[i] > marginPrev[i],
				turnover[i] > turnoverPrev[i],
			}
			score := 0.0
			for _, ok := range flags {
				if ok {
					score++
				}
			}
			cells = append(cells, matrix.Cell{Date: d, Ticker: t, Value: score})
		}
	}
	return f.onPriceDates(ctx, tables, matrix.Unstack(cells))
}

// InvestmentToAssets is the four-quarter change in PPE plus inventory
// scaled by total assets.
type InvestmentToAssets struct {
	fundamental
}

// NewInvestmentToAssets creates an InvestmentToAssets factor.
func NewInvestmentToAssets(forwardFill bool, name string) *InvestmentToAssets {
	if name == "" {
		name = "investment_to_assets"
	}
	return &InvestmentToAssets{fundamental{name: name, ForwardFill: forwardFill}}
}

func (f *InvestmentToAssets) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	bal, err := quarterly(ctx, tables, domain.DatasetBalanceSheet)
	if err != nil {
		return nil, err
	}
	for _, c := range []string{"propertyPlantEquipment", "inventory", "totalAssets"} {
		if !domain.HasColumn(bal, c) {
			return nil, fmt.Errorf("%w: %s missing %s", ErrMissingInput, domain.DatasetBalanceSheet, c)
		}
	}

	p := newPanel(bal, "propertyPlantEquipment", "inventory", "totalAssets")
	var cells []matrix.Cell
	for _, t := range p.tickers() {
		ppe, inv, assets := p.series(t, "propertyPlantEquipment"), p.series(t, "inventory"), p.series(t, "totalAssets")
		capital := make([]float64, len(ppe))
		for i := range ppe {
			capital[i] = nanToZero(ppe[i]) + nanToZero(inv[i])
		}
		prev := lag(capital, quartersBack)
		for i, d := range p.dates[t] {
			v := ratio(capital[i]-prev[i], assets[i])
			if !math.IsNaN(v) {
				cells = append(cells, matrix.Cell{Date: d, Ticker: t, Value: v})
			}
		}
	}
	return f.onPriceDates(ctx, tables, matrix.Unstack(cells))
}

// EVToEBITDA is the earnings yield EBITDA / EV with
// EV = price * shares + debt - cash.
type EVToEBITDA struct {
	fundamental
}

// NewEVToEBITDA creates an EVToEBITDA factor.
func NewEVToEBITDA(forwardFill bool, name string) *EVToEBITDA {
	if name == "" {
		name = "ev_to_ebitda_inv"
	}
	return &EVToEBITDA{fundamental{name: name, ForwardFill: forwardFill}}
}

func (f *EVToEBITDA) ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := prices(ctx, tables)
	if err != nil {
		return nil, err
	}
	inc, err := quarterly(ctx, tables, domain.DatasetIncomeStatement)
	if err != nil {
		return nil, err
	}
	bal, err := quarterly(ctx, tables, domain.DatasetBalanceSheet)
	if err != nil {
		return nil, err
	}

	incP := newPanel(inc, "operatingIncome", "depreciationAndAmortization", "depreciation")
	balP := newPanel(bal, "commonStockSharesOutstanding", "shortLongTermDebtTotal",
		"shortTermDebt", "longTermDebt", "cashAndCashEquivalentsAtCarryingValue")

	var ebitdaCells, sharesCells, debtCells, cashCells []matrix.Cell
	for _, t := range incP.tickers() {
		for _, d := range incP.dates[t] {
			da := incP.value(t, d, "depreciationAndAmortization")
			dep := incP.value(t, d, "depreciation")
			if math.IsNaN(da) && math.IsNaN(dep) {
				continue
			}
			v := incP.value(t, d, "operatingIncome") + nanToZero(da) + nanToZero(dep)
			if !math.IsNaN(v) {
				ebitdaCells = append(ebitdaCells, matrix.Cell{Date: d, Ticker: t, Value: v})
			}
		}
	}
	for _, t := range balP.tickers() {
		for _, d := range balP.dates[t] {
			shares := balP.value(t, d, "commonStockSharesOutstanding")
			if math.IsNaN(shares) {
				continue
			}
			sharesCells = append(sharesCells, matrix.Cell{Date: d, Ticker: t, Value: shares})
			debt := balP.value(t, d, "shortLongTermDebtTotal")
			if math.IsNaN(debt) {
				debt = balP.value(t, d, "shortTermDebt") + balP.value(t, d, "longTermDebt")
			}
			debtCells = append(debtCells, matrix.Cell{Date: d, Ticker: t, Value: debt})
			cashCells = append(cashCells, matrix.Cell{Date: d, Ticker: t, Value: balP.value(t, d, "cashAndCashEquivalentsAtCarryingValue")})
		}
	}

	align := func(cells []matrix.Cell) *matrix.Wide {
		return matrix.Unstack(cells).AsOf(p.Dates).FFill()
	}
	ebitda, shares, debt, cash := align(ebitdaCells), align(sharesCells), align(debtCells), align(cashCells)

	ev := matrix.Sub(matrix.Add(matrix.Mul(p, shares), debt), cash)
	yield := matrix.Div(ev, ebitda).Map(func(v float64) float64 {
		if v == 0 {
			return math.NaN()
		}
		return 1 / v
	})
	if f.ForwardFill {
		yield = yield.FFill()
	}
	return yield, nil
}
