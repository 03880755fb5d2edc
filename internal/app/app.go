// Package app wires a config.Config to stores, factors and the batch pipeline.
// It is shared by the commands under cmd/.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/config"
	"quantlab-factor-library/internal/factor"
	"quantlab-factor-library/internal/orchestrator"
	"quantlab-factor-library/internal/pipeline"
	"quantlab-factor-library/internal/provider"
	"quantlab-factor-library/internal/storage"
	chstore "quantlab-factor-library/internal/storage/clickhouse"
	"quantlab-factor-library/internal/storage/files"
	"quantlab-factor-library/internal/storage/memory"
	"quantlab-factor-library/internal/storage/migrations"
	pgstore "quantlab-factor-library/internal/storage/postgres"
)

// FactorValuesDir is the subdirectory of the output dir used by the files backend.
const FactorValuesDir = "factors"

// Stores holds all storage implementations of a run.
type Stores struct {
	Datasets     storage.DatasetStore
	FactorValues storage.FactorValueStore
	Registry     storage.RegistryStore
	Correlations storage.CorrelationStore

	closers []func()
}

// Close releases database connections in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores creates the stores selected by cfg. Database backends are
// migrated first when cfg.Storage.Migrate is set. The fixtures source loads
// a synthetic universe into memory.
func OpenStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	s := &Stores{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var chConn *chstore.Conn
	if cfg.Data.Source == config.SourceClickHouse || cfg.Storage.FactorValues == config.BackendClickHouse {
		conn, err := openClickHouse(ctx, cfg.Storage.ClickHouseDSN, cfg.Storage.Migrate)
		if err != nil {
			return nil, err
		}
		chConn = conn
		s.closers = append(s.closers, func() { _ = conn.Close() })
		log.Info().Bool("migrated", cfg.Storage.Migrate).Msg("connected to clickhouse")
	}

	var pool *pgstore.Pool
	if cfg.Storage.Registry == config.BackendPostgres {
		p, err := openPostgres(ctx, cfg.Storage.PostgresDSN, cfg.Storage.Migrate)
		if err != nil {
			return nil, err
		}
		pool = p
		s.closers = append(s.closers, p.Close)
		log.Info().Bool("migrated", cfg.Storage.Migrate).Msg("connected to postgres")
	}

	switch cfg.Data.Source {
	case config.SourceFiles:
		s.Datasets = files.NewDatasetStore(cfg.Data.Dir)
	case config.SourceClickHouse:
		s.Datasets = chstore.NewDatasetStore(chConn)
	case config.SourceFixtures:
		mem := memory.NewDatasetStore()
		if err := pipeline.LoadFixtures(ctx, mem, pipeline.DefaultFixture()); err != nil {
			return nil, err
		}
		s.Datasets = mem
	default:
		return nil, fmt.Errorf("%w: data source %q", config.ErrInvalidConfig, cfg.Data.Source)
	}

	switch cfg.Storage.FactorValues {
	case config.BackendMemory:
		s.FactorValues = memory.NewFactorValueStore()
	case config.BackendFiles:
		s.FactorValues = files.NewFactorValueStore(filepath.Join(cfg.Run.OutputDir, FactorValuesDir))
	case config.BackendClickHouse:
		s.FactorValues = chstore.NewFactorValueStore(chConn)
	default:
		return nil, fmt.Errorf("%w: factor value backend %q", config.ErrInvalidConfig, cfg.Storage.FactorValues)
	}

	if pool != nil {
		s.Registry = pgstore.NewRegistryStore(pool)
		s.Correlations = pgstore.NewCorrelationStore(pool)
	} else {
		s.Registry = memory.NewRegistryStore()
		s.Correlations = memory.NewCorrelationStore()
	}

	ok = true
	return s, nil
}

func openClickHouse(ctx context.Context, dsn string, migrate bool) (*chstore.Conn, error) {
	if migrate {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		return conn, nil
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	return conn, nil
}

func openPostgres(ctx context.Context, dsn string, migrate bool) (*pgstore.Pool, error) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}
	return pool, nil
}

// Factors builds the configured factors, or factor.Defaults when none are listed.
func Factors(cfg *config.Config) ([]factor.Factor, error) {
	if len(cfg.Factors) == 0 {
		return factor.Defaults(), nil
	}
	return factor.FromSpecs(cfg.Factors)
}

// NewPipeline builds the batch pipeline over stores.
func NewPipeline(cfg *config.Config, stores *Stores, log zerolog.Logger) (*pipeline.FactorPipeline, error) {
	start, end, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	popts := provider.Options{Start: start, End: end}

	orch := orchestrator.New(orchestrator.Options{
		Tables:           provider.NewFactory(stores.Datasets, popts),
		FactorValueStore: stores.FactorValues,
		RegistryStore:    stores.Registry,
		CorrelationStore: stores.Correlations,
		Cleaning:         cfg.Cleaning.CleaningOptions(),
		Horizon:          cfg.Run.Horizon,
		Quantile:         cfg.Run.Quantile,
		Parallel:         cfg.Run.Parallel,
		MaxWorkers:       cfg.Run.MaxWorkers,
		Logger:           log,
	})
	checker := pipeline.NewSufficiencyChecker(provider.NewLoader(stores.Datasets, popts), pipeline.DefaultThresholds())

	return pipeline.NewFactorPipeline(orch, cfg.Run.OutputDir).
		WithSufficiencyChecker(checker).
		WithLogger(log), nil
}
