// Package main loads input datasets into ClickHouse, from a directory of CSV
// files or from the synthetic fixture universe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/app"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/pipeline"
	"quantlab-factor-library/internal/storage"
	chstore "quantlab-factor-library/internal/storage/clickhouse"
	"quantlab-factor-library/internal/storage/files"
	"quantlab-factor-library/internal/storage/memory"
	"quantlab-factor-library/internal/storage/migrations"
)

func main() {
	// Parse flags
	dataDir := flag.String("data-dir", "data", "Directory of input CSV datasets")
	useFixtures := flag.Bool("use-fixtures", false, "Ingest the synthetic fixture universe instead of CSV files")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("QUANTLAB_STORAGE_CLICKHOUSE_DSN"), "ClickHouse connection string")
	datasets := flag.String("datasets", "", "Comma-separated dataset names (default: all known datasets)")
	migrate := flag.Bool("migrate", true, "Apply embedded ClickHouse migrations first")
	metricsAddr := flag.String("metrics-addr", "", "Serve /metrics and /health on this address")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log, err := observability.NewLogger(os.Stderr, *logLevel, observability.FormatConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	log = observability.Component(log, "ingest")

	if *clickhouseDSN == "" {
		log.Fatal().Msg("--clickhouse-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		app.StartHTTPServer(ctx, *metricsAddr, nil, log)
	}

	if err := run(ctx, log, *dataDir, *useFixtures, *clickhouseDSN, splitList(*datasets), *migrate); err != nil {
		log.Error().Err(err).Msg("ingest failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, dataDir string, useFixtures bool, dsn string, datasets []string, migrate bool) error {
	var src storage.DatasetStore
	if useFixtures {
		mem := memory.NewDatasetStore()
		if err := pipeline.LoadFixtures(ctx, mem, pipeline.DefaultFixture()); err != nil {
			return err
		}
		src = mem
	} else {
		src = files.NewDatasetStore(dataDir)
	}

	var (
		conn *chstore.Conn
		err  error
	)
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, dsn)
	} else {
		conn, err = chstore.NewConn(ctx, dsn)
	}
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	counts, err := app.Ingest(ctx, src, chstore.NewDatasetStore(conn), datasets, log)
	if err != nil {
		return err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	log.Info().Int("datasets", len(counts)).Int("records", total).Msg("ingest complete")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
