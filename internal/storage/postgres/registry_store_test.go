package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

func testSummary(factor, runID string, icMean float64) *domain.FactorSummary {
	return &domain.FactorSummary{
		Factor:    factor,
		RunID:     runID,
		ICMean:    icMean,
		ICStd:     0.1,
		ICIR:      icMean / 0.1,
		TStat:     2.5,
		HitRate:   0.55,
		NDates:    120,
		LSMean:    0.0004,
		LSStd:     0.01,
		LSSharpe:  0.63,
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRegistryStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegistryStore(pool)

	s := testSummary("momentum_12m", "run-1", 0.03)
	require.NoError(t, store.Upsert(ctx, s))

	got, err := store.GetByFactor(ctx, "momentum_12m")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.InDelta(t, 0.03, got.ICMean, 1e-12)
	assert.InDelta(t, 0.3, got.ICIR, 1e-12)
	assert.Equal(t, 120, got.NDates)
	assert.True(t, s.UpdatedAt.Equal(got.UpdatedAt))
}

func TestRegistryStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegistryStore(pool)

	require.NoError(t, store.Upsert(ctx, testSummary("volatility_60d", "run-1", 0.01)))
	require.NoError(t, store.Upsert(ctx, testSummary("volatility_60d", "run-2", -0.02)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "run-2", all[0].RunID)
	assert.InDelta(t, -0.02, all[0].ICMean, 1e-12)
}

func TestRegistryStore_NaNRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegistryStore(pool)

	s := testSummary("hurst_100d", "run-1", math.NaN())
	s.NDates = 0
	require.NoError(t, store.Upsert(ctx, s))

	got, err := store.GetByFactor(ctx, "hurst_100d")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.ICMean))
}

func TestRegistryStore_GetAllOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegistryStore(pool)

	for _, name := range []string{"volatility_60d", "dollar_volume_20d", "momentum_12m"} {
		require.NoError(t, store.Upsert(ctx, testSummary(name, "run-1", 0.01)))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "dollar_volume_20d", all[0].Factor)
	assert.Equal(t, "momentum_12m", all[1].Factor)
	assert.Equal(t, "volatility_60d", all[2].Factor)
}

func TestRegistryStore_NotFoundAndInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRegistryStore(pool)

	_, err := store.GetByFactor(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.FactorSummary{}), storage.ErrInvalidInput)
}
