package reporting

import "time"

// Report is the factor batch report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Data Quality (input sufficiency checks)
	DataQuality DataQualitySection

	// Factor summaries (sorted by factor)
	Summaries []SummaryRow

	// Correlations of the run
	FactorCorrelations    []CorrelationRow // sorted by left, right
	BenchmarkCorrelations []BenchmarkRow   // sorted by factor, benchmark

	// Factors that did not complete, and non-fatal run errors
	Failures []FailureRow
	Errors   []string
}

// DataQualitySection contains input sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SummaryRow represents one row of the factor summary table.
type SummaryRow struct {
	Factor   string
	RunID    string
	ICMean   float64
	ICStd    float64
	ICIR     float64
	TStat    float64
	HitRate  float64
	NDates   int
	LSMean   float64
	LSStd    float64
	LSSharpe float64
}

// CorrelationRow is one cell of the factor-pairwise correlation matrix.
type CorrelationRow struct {
	Left  string
	Right string
	Value float64
	NObs  int
}

// BenchmarkRow is the correlation of a factor's long-short series with a benchmark.
type BenchmarkRow struct {
	Factor    string
	Benchmark string
	Value     float64
	NObs      int
}

// FailureRow lists a factor that failed in the run.
type FailureRow struct {
	Factor string
	Error  string
}

// FactorNames returns the distinct factors of the pairwise matrix, in order of first appearance.
func (r *Report) FactorNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range r.FactorCorrelations {
		for _, n := range []string{c.Left, c.Right} {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names
}
