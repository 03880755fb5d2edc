package reporting

import (
	"fmt"
	"strings"
)

// RenderSummaryCSV renders factor summaries as CSV string.
func RenderSummaryCSV(rows []SummaryRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("factor,run_id,ic_mean,ic_std,ic_ir,t_stat,hit_rate,n_dates,")
	sb.WriteString("ls_mean,ls_std,ls_sharpe\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f\n",
			r.Factor,
			r.RunID,
			r.ICMean,
			r.ICStd,
			r.ICIR,
			r.TStat,
			r.HitRate,
			r.NDates,
			r.LSMean,
			r.LSStd,
			r.LSSharpe,
		))
	}

	return sb.String()
}

// RenderCorrelationCSV renders the factor-pairwise correlation matrix in long form.
func RenderCorrelationCSV(rows []CorrelationRow) string {
	var sb strings.Builder
	sb.WriteString("left,right,value,n_obs\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%d\n", r.Left, r.Right, r.Value, r.NObs))
	}
	return sb.String()
}

// RenderBenchmarkCSV renders long-short vs benchmark correlations.
func RenderBenchmarkCSV(rows []BenchmarkRow) string {
	var sb strings.Builder
	sb.WriteString("factor,benchmark,value,n_obs\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%d\n", r.Factor, r.Benchmark, r.Value, r.NObs))
	}
	return sb.String()
}
