// Package main runs one factor batch: load inputs, compute and clean every
// configured factor, persist values, registry and correlations, write the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/app"
	"quantlab-factor-library/internal/config"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/pipeline"
	"quantlab-factor-library/internal/reporting"
)

func main() {
	// Parse flags (override config file and environment)
	configPath := flag.String("config", "", "YAML config file")
	dataDir := flag.String("data-dir", "", "Directory of input CSV datasets")
	useFixtures := flag.Bool("use-fixtures", false, "Use a synthetic in-memory universe instead of real data")
	outputDir := flag.String("output-dir", "", "Output directory for report files")
	serial := flag.Bool("serial", false, "Compute factors one at a time")
	maxWorkers := flag.Int("max-workers", 0, "Worker pool size (0 = number of CPUs)")
	metricsAddr := flag.String("metrics-addr", "", "Serve /metrics and /health on this address")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *dataDir, *useFixtures, *outputDir, *serial, *maxWorkers, *metricsAddr, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := observability.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		app.StartHTTPServer(ctx, cfg.Metrics.Addr, nil, log)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("factor batch failed")
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, dataDir string, useFixtures bool, outputDir string, serial bool, maxWorkers int, metricsAddr, logLevel string) {
	if dataDir != "" {
		cfg.Data.Source = config.SourceFiles
		cfg.Data.Dir = dataDir
	}
	if useFixtures {
		cfg.Data.Source = config.SourceFixtures
	}
	if outputDir != "" {
		cfg.Run.OutputDir = outputDir
	}
	if serial {
		cfg.Run.Parallel = false
	}
	if maxWorkers > 0 {
		cfg.Run.MaxWorkers = maxWorkers
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	factors, err := app.Factors(cfg)
	if err != nil {
		return err
	}
	p, err := app.NewPipeline(cfg, stores, log)
	if err != nil {
		return err
	}

	result, report, err := p.Run(ctx, factors)
	if err != nil {
		return err
	}

	fmt.Println(reporting.SummaryTable(report.Summaries).Render())
	if t := reporting.FailureTable(report.Failures); t != nil {
		fmt.Println(t.Render())
	}
	for _, e := range result.Errors {
		log.Warn().Str("error", e).Msg("non-fatal run error")
	}

	if cfg.Run.OutputDir != "" {
		fmt.Printf("\nRun %s completed:\n", result.RunID)
		for _, name := range []string{pipeline.ReportFile, pipeline.SummaryFile, pipeline.CorrelationFile, pipeline.BenchmarkCorrelationFile} {
			fmt.Printf("  - %s/%s\n", cfg.Run.OutputDir, name)
		}
	}
	return nil
}
