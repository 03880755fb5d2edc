package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/orchestrator"
	"quantlab-factor-library/internal/storage"
)

// Generator produces reports from stored registry and correlation data.
type Generator struct {
	registry     storage.RegistryStore
	correlations storage.CorrelationStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(registry storage.RegistryStore, correlations storage.CorrelationStore) *Generator {
	return &Generator{
		registry:     registry,
		correlations: correlations,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report of all registry entries and the correlations of runID.
// An empty runID selects the latest run; with no runs the correlation sections stay empty.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	summaries, err := g.registry.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	if runID == "" {
		runID, err = g.correlations.LatestRunID(ctx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("latest run: %w", err)
		}
	}

	report := &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Summaries:   summaryRows(summaries),
	}
	if runID == "" {
		return report, nil
	}

	pairs, err := g.correlations.GetFactorCorrelations(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load factor correlations: %w", err)
	}
	bench, err := g.correlations.GetBenchmarkCorrelations(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load benchmark correlations: %w", err)
	}
	report.FactorCorrelations = correlationRows(pairs)
	report.BenchmarkCorrelations = benchmarkRows(bench)
	return report, nil
}

// FromRun builds a report straight from a batch result without reading stores.
func FromRun(res *orchestrator.RunResult, generatedAt time.Time) *Report {
	summaries := make([]*domain.FactorSummary, 0, len(res.Factors))
	for _, f := range res.Factors {
		summaries = append(summaries, f.Summary)
	}

	report := &Report{
		GeneratedAt:           generatedAt,
		RunID:                 res.RunID,
		Summaries:             summaryRows(summaries),
		FactorCorrelations:    correlationRows(res.Correlations),
		BenchmarkCorrelations: benchmarkRows(res.BenchmarkCorrelations),
		Errors:                append([]string(nil), res.Errors...),
	}
	for _, f := range res.Failed {
		report.Failures = append(report.Failures, FailureRow{Factor: f.Name, Error: f.Err.Error()})
	}
	return report
}

func summaryRows(summaries []*domain.FactorSummary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		if s == nil {
			continue
		}
		rows = append(rows, SummaryRow{
			Factor:   s.Factor,
			RunID:    s.RunID,
			ICMean:   s.ICMean,
			ICStd:    s.ICStd,
			ICIR:     s.ICIR,
			TStat:    s.TStat,
			HitRate:  s.HitRate,
			NDates:   s.NDates,
			LSMean:   s.LSMean,
			LSStd:    s.LSStd,
			LSSharpe: s.LSSharpe,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Factor < rows[j].Factor })
	return rows
}

func correlationRows(entries []*domain.CorrelationEntry) []CorrelationRow {
	rows := make([]CorrelationRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, CorrelationRow{Left: e.Left, Right: e.Right, Value: e.Value, NObs: e.NObs})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Left != rows[j].Left {
			return rows[i].Left < rows[j].Left
		}
		return rows[i].Right < rows[j].Right
	})
	return rows
}

func benchmarkRows(entries []*domain.BenchmarkCorrelation) []BenchmarkRow {
	rows := make([]BenchmarkRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, BenchmarkRow{Factor: e.Factor, Benchmark: e.Benchmark, Value: e.Value, NObs: e.NObs})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Factor != rows[j].Factor {
			return rows[i].Factor < rows[j].Factor
		}
		return rows[i].Benchmark < rows[j].Benchmark
	})
	return rows
}
