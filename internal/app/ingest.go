package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/storage"
)

// KnownDatasets lists every input dataset in load order.
var KnownDatasets = []string{
	domain.DatasetPriceDaily,
	domain.DatasetCompanyOverview,
	domain.DatasetBenchmarkFactors,
	domain.DatasetIncomeStatement,
	domain.DatasetBalanceSheet,
	domain.DatasetCashFlow,
}

// Ingest copies datasets from src to dst and returns the record count per
// dataset. Datasets missing from src are skipped with a warning.
func Ingest(ctx context.Context, src, dst storage.DatasetStore, datasets []string, log zerolog.Logger) (map[string]int, error) {
	if len(datasets) == 0 {
		datasets = KnownDatasets
	}
	counts := make(map[string]int, len(datasets))
	for _, name := range datasets {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		records, err := src.Load(ctx, name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Warn().Str("dataset", name).Msg("dataset not found, skipping")
				continue
			}
			return counts, fmt.Errorf("load %s: %w", name, err)
		}
		if len(records) == 0 {
			log.Warn().Str("dataset", name).Msg("dataset is empty, skipping")
			continue
		}
		if err := dst.InsertBulk(ctx, name, records); err != nil {
			return counts, fmt.Errorf("insert %s: %w", name, err)
		}
		counts[name] = len(records)
		observability.RecordIngested(name, len(records))
		log.Info().Str("dataset", name).Int("records", len(records)).Msg("dataset ingested")
	}
	return counts, nil
}
