package domain

import "time"

// Dataset names served by a DatasetStore.
const (
	DatasetPriceDaily       = "price_daily"
	DatasetIncomeStatement  = "fundamentals_income_statement"
	DatasetBalanceSheet     = "fundamentals_balance_sheet"
	DatasetCashFlow         = "fundamentals_cash_flow"
	DatasetCompanyOverview  = "company_overview"
	DatasetBenchmarkFactors = "benchmark_factors"
)

// Well-known column names.
const (
	SectorColumn          = "Sector"
	PeriodTypeLabel       = "period_type"
	PeriodTypeQuarterly   = "quarterly"
	BenchmarkMarketColumn = "mktrf"
)

// DateLayout is the on-disk date format for CSV datasets and outputs.
const DateLayout = "2006-01-02"

// Record is one long-format row of a dataset.
// Fundamentals use Date for fiscalDateEnding. Benchmark rows have an empty Ticker.
type Record struct {
	Ticker string
	Date   time.Time
	Values map[string]float64 // numeric columns
	Labels map[string]string  // string columns (Sector, period_type, ...)
}

// Value returns the numeric column and whether it is present.
func (r *Record) Value(column string) (float64, bool) {
	if r == nil || r.Values == nil {
		return 0, false
	}
	v, ok := r.Values[column]
	return v, ok
}

// Label returns the string column or "".
func (r *Record) Label(column string) string {
	if r == nil || r.Labels == nil {
		return ""
	}
	return r.Labels[column]
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := &Record{Ticker: r.Ticker, Date: r.Date}
	if r.Values != nil {
		out.Values = make(map[string]float64, len(r.Values))
		for k, v := range r.Values {
			out.Values[k] = v
		}
	}
	if r.Labels != nil {
		out.Labels = make(map[string]string, len(r.Labels))
		for k, v := range r.Labels {
			out.Labels[k] = v
		}
	}
	return out
}

// HasColumn reports whether any record carries the numeric column.
func HasColumn(records []*Record, column string) bool {
	for _, r := range records {
		if _, ok := r.Values[column]; ok {
			return true
		}
	}
	return false
}

// HasLabel reports whether any record carries the string column.
func HasLabel(records []*Record, column string) bool {
	for _, r := range records {
		if _, ok := r.Labels[column]; ok {
			return true
		}
	}
	return false
}

// FilterPeriod keeps records whose period_type label equals period.
func FilterPeriod(records []*Record, period string) []*Record {
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Label(PeriodTypeLabel) == period {
			out = append(out, r)
		}
	}
	return out
}
