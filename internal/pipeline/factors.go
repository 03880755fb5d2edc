package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/factor"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/orchestrator"
	"quantlab-factor-library/internal/reporting"
)

// Output file names written by FactorPipeline.
const (
	ReportFile               = "REPORT_FACTORS.md"
	SummaryFile              = "factor_summary.csv"
	CorrelationFile          = "factor_correlations.csv"
	BenchmarkCorrelationFile = "factor_benchmark_correlations.csv"
)

// FactorPipeline runs a factor batch and writes its report files.
type FactorPipeline struct {
	orch               *orchestrator.Orchestrator
	sufficiencyChecker *SufficiencyChecker
	outputDir          string
	clock              func() time.Time
	log                zerolog.Logger
}

// NewFactorPipeline creates a new pipeline. An empty outputDir skips file output.
func NewFactorPipeline(orch *orchestrator.Orchestrator, outputDir string) *FactorPipeline {
	return &FactorPipeline{
		orch:      orch,
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
		log:       zerolog.Nop(),
	}
}

// WithSufficiencyChecker adds input sufficiency checks to the report.
func (p *FactorPipeline) WithSufficiencyChecker(c *SufficiencyChecker) *FactorPipeline {
	p.sufficiencyChecker = c
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *FactorPipeline) WithClock(clock func() time.Time) *FactorPipeline {
	p.clock = clock
	return p
}

// WithLogger sets the pipeline logger.
func (p *FactorPipeline) WithLogger(log zerolog.Logger) *FactorPipeline {
	p.log = observability.Component(log, "pipeline")
	return p
}

// Run executes the batch and writes output files:
// - REPORT_FACTORS.md
// - factor_summary.csv
// - factor_correlations.csv
// - factor_benchmark_correlations.csv
//
// Failed sufficiency checks are reported, they do not stop the run.
func (p *FactorPipeline) Run(ctx context.Context, factors []factor.Factor) (*orchestrator.RunResult, *reporting.Report, error) {
	// 1. Sufficiency check first (if configured)
	var dataQuality reporting.DataQualitySection
	if p.sufficiencyChecker != nil {
		suff, err := p.sufficiencyChecker.Check(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("sufficiency check: %w", err)
		}
		dataQuality = convertToDataQuality(suff)
		if !suff.AllPass {
			p.log.Warn().Strs("errors", suff.Errors).Msg("input sufficiency checks failed")
		}
	}

	// 2. Factor batch
	result, err := p.orch.Run(ctx, factors)
	if err != nil {
		return nil, nil, err
	}

	// 3. Report
	report := reporting.FromRun(result, p.clock())
	report.DataQuality = dataQuality

	if p.outputDir != "" {
		if err := p.writeOutputs(report); err != nil {
			return result, report, err
		}
		p.log.Info().Str("dir", p.outputDir).Msg("report written")
	}
	observability.RecordReport()
	return result, report, nil
}

func (p *FactorPipeline) writeOutputs(report *reporting.Report) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return err
	}
	files := []struct {
		name    string
		content string
	}{
		{ReportFile, reporting.RenderMarkdown(report)},
		{SummaryFile, reporting.RenderSummaryCSV(report.Summaries)},
		{CorrelationFile, reporting.RenderCorrelationCSV(report.FactorCorrelations)},
		{BenchmarkCorrelationFile, reporting.RenderBenchmarkCSV(report.BenchmarkCorrelations)},
	}
	for _, f := range files {
		path := filepath.Join(p.outputDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   append([]string(nil), result.Errors...),
		AllChecksPassed:   result.AllPass,
	}
}
