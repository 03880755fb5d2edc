package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/config"
	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/pipeline"
	"quantlab-factor-library/internal/storage/files"
	"quantlab-factor-library/internal/storage/memory"
)

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Source = config.SourceFixtures
	cfg.Run.OutputDir = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpenStores_Fixtures(t *testing.T) {
	ctx := context.Background()
	cfg := fixtureConfig(t)
	cfg.Storage.FactorValues = config.BackendMemory

	stores, err := OpenStores(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &memory.DatasetStore{}, stores.Datasets)
	assert.IsType(t, &memory.FactorValueStore{}, stores.FactorValues)
	assert.IsType(t, &memory.RegistryStore{}, stores.Registry)
	assert.IsType(t, &memory.CorrelationStore{}, stores.Correlations)

	names, err := stores.Datasets.Datasets(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, domain.DatasetPriceDaily)
	assert.Len(t, names, 6)
}

func TestOpenStores_Files(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Run.OutputDir = t.TempDir()

	stores, err := OpenStores(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &files.DatasetStore{}, stores.Datasets)
	assert.IsType(t, &files.FactorValueStore{}, stores.FactorValues)
}

func TestFactors(t *testing.T) {
	cfg := config.Default()
	fs, err := Factors(cfg)
	require.NoError(t, err)
	assert.Len(t, fs, 4)

	cfg.Factors = []domain.FactorSpec{
		{Type: domain.FactorTypeMomentum, Name: "mom_6m", Lookback: 126},
		{Type: domain.FactorTypeVolatility},
	}
	fs, err = Factors(cfg)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "mom_6m", fs[0].Name())

	cfg.Factors = []domain.FactorSpec{{Type: "nope"}}
	_, err = Factors(cfg)
	assert.Error(t, err)
}

func TestNewPipeline_RunsOverFixtures(t *testing.T) {
	ctx := context.Background()
	cfg := fixtureConfig(t)

	stores, err := OpenStores(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()

	p, err := NewPipeline(cfg, stores, zerolog.Nop())
	require.NoError(t, err)
	fs, err := Factors(cfg)
	require.NoError(t, err)

	result, report, err := p.Run(ctx, fs)
	require.NoError(t, err)
	assert.Len(t, result.Factors, 4)
	assert.True(t, report.DataQuality.AllChecksPassed)

	_, err = os.Stat(filepath.Join(cfg.Run.OutputDir, pipeline.ReportFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Run.OutputDir, FactorValuesDir, "factor_momentum_12m.csv"))
	assert.NoError(t, err)

	stored, err := stores.FactorValues.Factors(ctx)
	require.NoError(t, err)
	assert.Contains(t, stored, "volatility_60d")
}

func TestHandler(t *testing.T) {
	status := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"idle"}`))
	})

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		code    int
		body    string
	}{
		{"health", Handler(nil), "/health", http.StatusOK, "ok"},
		{"metrics", Handler(nil), "/metrics", http.StatusOK, ""},
		{"status missing", Handler(nil), "/status", http.StatusNotFound, ""},
		{"status", Handler(status), "/status", http.StatusOK, `{"status":"idle"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
