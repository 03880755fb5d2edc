package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

func date(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestDatasetStore_InsertAndLoadSorted(t *testing.T) {
	store := NewDatasetStore()
	ctx := context.Background()

	records := []*domain.Record{
		{Ticker: "MSFT", Date: date(2), Values: map[string]float64{"close": 410}},
		{Ticker: "AAPL", Date: date(2), Values: map[string]float64{"close": 180}},
		{Ticker: "AAPL", Date: date(1), Values: map[string]float64{"close": 178}},
	}
	if err := store.InsertBulk(ctx, domain.DatasetPriceDaily, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.Load(ctx, domain.DatasetPriceDaily)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if !got[0].Date.Equal(date(1)) || got[1].Ticker != "AAPL" || got[2].Ticker != "MSFT" {
		t.Errorf("unexpected order: %+v %+v %+v", got[0], got[1], got[2])
	}

	// Mutating the loaded copy must not leak into the store
	got[0].Values["close"] = -1
	again, _ := store.Load(ctx, domain.DatasetPriceDaily)
	if again[0].Values["close"] != 178 {
		t.Errorf("store mutated through returned record")
	}
}

func TestDatasetStore_LoadMissing(t *testing.T) {
	store := NewDatasetStore()

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDatasetStore_InvalidInput(t *testing.T) {
	store := NewDatasetStore()

	if err := store.InsertBulk(context.Background(), "", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := store.InsertBulk(context.Background(), "x", []*domain.Record{nil}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil record, got %v", err)
	}
}

func TestDatasetStore_Datasets(t *testing.T) {
	store := NewDatasetStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, "b", nil)
	_ = store.InsertBulk(ctx, "a", nil)

	names, err := store.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected datasets: %v", names)
	}
}
