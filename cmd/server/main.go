// Package main runs the factor batch on a schedule and serves its state:
// - /status: last run, run counts, last error
// - /metrics: Prometheus metrics
// - /health: liveness
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantlab-factor-library/internal/app"
	"quantlab-factor-library/internal/config"
	"quantlab-factor-library/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	interval := flag.Duration("interval", 24*time.Hour, "Time between factor batches")
	metricsAddr := flag.String("metrics-addr", ":9090", "Address for /status, /metrics and /health")
	useFixtures := flag.Bool("use-fixtures", false, "Use a synthetic in-memory universe instead of real data")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *useFixtures {
		cfg.Data.Source = config.SourceFixtures
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *interval <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --interval must be positive")
		os.Exit(1)
	}

	log, err := observability.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()

	factors, err := app.Factors(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid factor configuration")
	}
	p, err := app.NewPipeline(cfg, stores, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	scheduler := app.NewScheduler(p, factors, *interval, log)

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if cfg.Metrics.Addr != "" {
		app.StartHTTPServer(ctx, cfg.Metrics.Addr, scheduler, log)
	}

	err = scheduler.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("shutdown complete")
}
