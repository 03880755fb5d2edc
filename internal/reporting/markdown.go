package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Factor Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("Factors: %d | Failed: %d\n\n", len(r.Summaries), len(r.Failures)))

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Dependent factors may be missing or degraded.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Factor Summary
	sb.WriteString("## Factor Summary\n\n")
	if len(r.Summaries) > 0 {
		sb.WriteString("| Factor | IC Mean | IC Std | ICIR | t-stat | Hit Rate | Dates | LS Mean | LS Std | LS Sharpe |\n")
		sb.WriteString("|--------|---------|--------|------|--------|----------|-------|---------|--------|-----------|\n")
		for _, s := range r.Summaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %s | %s | %s |\n",
				s.Factor,
				num(s.ICMean, 4), num(s.ICStd, 4), num(s.ICIR, 3), num(s.TStat, 2),
				num(s.HitRate, 3), s.NDates,
				num(s.LSMean, 5), num(s.LSStd, 5), num(s.LSSharpe, 2)))
		}
	} else {
		sb.WriteString("No factor summaries available.\n")
	}
	sb.WriteString("\n")

	// Factor Correlations
	sb.WriteString("## Factor Correlations\n\n")
	if names := r.FactorNames(); len(names) > 0 {
		sort.Strings(names)
		cells := make(map[[2]string]float64, len(r.FactorCorrelations))
		for _, c := range r.FactorCorrelations {
			cells[[2]string{c.Left, c.Right}] = c.Value
		}

		sb.WriteString("| |")
		for _, n := range names {
			sb.WriteString(fmt.Sprintf(" %s |", n))
		}
		sb.WriteString("\n|---|")
		sb.WriteString(strings.Repeat("---|", len(names)))
		sb.WriteString("\n")
		for _, left := range names {
			sb.WriteString(fmt.Sprintf("| %s |", left))
			for _, right := range names {
				v, ok := cells[[2]string{left, right}]
				if !ok {
					v = math.NaN()
				}
				sb.WriteString(fmt.Sprintf(" %s |", num(v, 2)))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No factor correlations available.\n")
	}
	sb.WriteString("\n")

	// Benchmark Correlations
	sb.WriteString("## Long-Short vs Benchmark Factors\n\n")
	if len(r.BenchmarkCorrelations) > 0 {
		sb.WriteString("| Factor | Benchmark | Correlation | Dates |\n")
		sb.WriteString("|--------|-----------|-------------|-------|\n")
		for _, b := range r.BenchmarkCorrelations {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n", b.Factor, b.Benchmark, num(b.Value, 3), b.NObs))
		}
	} else {
		sb.WriteString("No benchmark correlations available.\n")
	}
	sb.WriteString("\n")

	// Failures
	if len(r.Failures) > 0 {
		sb.WriteString("## Failed Factors\n\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- `%s`: %s\n", f.Factor, f.Error))
		}
		sb.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		sb.WriteString("## Run Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// num formats v with prec decimals, "n/a" when missing.
func num(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}
