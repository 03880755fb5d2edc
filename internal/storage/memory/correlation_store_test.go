package memory

import (
	"context"
	"errors"
	"testing"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

func TestCorrelationStore_InsertAndGet(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	entries := []*domain.CorrelationEntry{
		{Left: "vol", Right: "mom", Value: -0.2, NObs: 10},
		{Left: "mom", Right: "vol", Value: -0.2, NObs: 10},
	}
	if err := store.InsertFactorCorrelations(ctx, "run-1", entries); err != nil {
		t.Fatalf("InsertFactorCorrelations failed: %v", err)
	}

	got, err := store.GetFactorCorrelations(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetFactorCorrelations failed: %v", err)
	}
	if len(got) != 2 || got[0].Left != "mom" || got[0].RunID != "run-1" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestCorrelationStore_DuplicateRun(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	entries := []*domain.BenchmarkCorrelation{{Factor: "mom", Benchmark: "mktrf", Value: 0.1}}
	if err := store.InsertBenchmarkCorrelations(ctx, "run-1", entries); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBenchmarkCorrelations(ctx, "run-1", entries)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCorrelationStore_LatestRunID(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	if _, err := store.LatestRunID(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = store.InsertFactorCorrelations(ctx, "run-1", nil)
	_ = store.InsertFactorCorrelations(ctx, "run-2", nil)
	_ = store.InsertBenchmarkCorrelations(ctx, "run-1", nil)

	latest, err := store.LatestRunID(ctx)
	if err != nil {
		t.Fatalf("LatestRunID failed: %v", err)
	}
	if latest != "run-2" {
		t.Errorf("expected run-2, got %s", latest)
	}
}
