package reporting

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// SummaryTable lays out factor summaries for terminal output.
func SummaryTable(rows []SummaryRow) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Factor Summary")
	t.AppendHeader(table.Row{"Factor", "IC Mean", "ICIR", "t-stat", "Hit Rate", "Dates", "LS Sharpe"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Factor,
			num(r.ICMean, 4),
			num(r.ICIR, 3),
			num(r.TStat, 2),
			num(r.HitRate, 3),
			r.NDates,
			num(r.LSSharpe, 2),
		})
	}
	return t
}

// FailureTable lists failed factors, nil when there are none.
func FailureTable(rows []FailureRow) table.Writer {
	if len(rows) == 0 {
		return nil
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Failed Factors")
	t.AppendHeader(table.Row{"Factor", "Error"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Factor, r.Error})
	}
	return t
}
