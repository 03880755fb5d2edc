package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/cleaning"
	"quantlab-factor-library/internal/factor"
	"quantlab-factor-library/internal/orchestrator"
	"quantlab-factor-library/internal/provider"
	"quantlab-factor-library/internal/storage/memory"
)

func newTestPipeline(t *testing.T, fx Fixture, outputDir string) (*FactorPipeline, *memory.RegistryStore) {
	t.Helper()
	store := fixtureStore(t, fx)
	registry := memory.NewRegistryStore()
	orch := orchestrator.New(orchestrator.Options{
		Tables:           provider.NewFactory(store, provider.Options{}),
		FactorValueStore: memory.NewFactorValueStore(),
		RegistryStore:    registry,
		CorrelationStore: memory.NewCorrelationStore(),
		Cleaning:         cleaning.DefaultOptions(),
		Parallel:         true,
		MaxWorkers:       2,
	})
	checker := NewSufficiencyChecker(provider.NewLoader(store, provider.Options{}), DefaultThresholds())
	clock := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return NewFactorPipeline(orch, outputDir).WithSufficiencyChecker(checker).WithClock(clock), registry
}

func TestFactorPipeline_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	p, registry := newTestPipeline(t, DefaultFixture(), dir)

	result, report, err := p.Run(context.Background(), factor.Defaults())
	require.NoError(t, err)

	require.Len(t, result.Factors, 4)
	assert.Empty(t, result.Failed)
	assert.Equal(t, result.RunID, report.RunID)
	assert.True(t, report.DataQuality.AllChecksPassed)
	assert.Len(t, report.Summaries, 4)

	all, err := registry.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)

	for _, name := range []string{ReportFile, SummaryFile, CorrelationFile, BenchmarkCorrelationFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	md, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Factor Report"))
	assert.Contains(t, string(md), result.RunID)

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(summary)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "factor,run_id,ic_mean"))
	assert.True(t, strings.HasPrefix(lines[1], "dollar_volume_20d,"))

	corr, err := os.ReadFile(filepath.Join(dir, CorrelationFile))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(corr)), "\n"), 17)
}

func TestFactorPipeline_InsufficientDataStillRuns(t *testing.T) {
	p, _ := newTestPipeline(t, Fixture{Tickers: 6, Days: 40, Seed: 3}, "")

	factors := []factor.Factor{
		factor.NewMeanReversion(5, ""),
		factor.NewMomentum(10, 2, ""),
	}
	result, report, err := p.Run(context.Background(), factors)
	require.NoError(t, err)

	assert.Len(t, result.Factors, 2)
	assert.False(t, report.DataQuality.AllChecksPassed)
	assert.Len(t, report.DataQuality.SufficiencyChecks, 6)
}

func TestFactorPipeline_NoFactors(t *testing.T) {
	p, _ := newTestPipeline(t, smallFixture(), "")

	_, _, err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, orchestrator.ErrNoFactors)
}
