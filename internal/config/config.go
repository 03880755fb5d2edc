// Package config loads batch configuration from an optional YAML file and
// QUANTLAB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"quantlab-factor-library/internal/cleaning"
	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/metrics"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "QUANTLAB"

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid config")

// Data sources.
const (
	SourceFiles      = "files"
	SourceClickHouse = "clickhouse"
	SourceFixtures   = "fixtures"
)

// Store backends.
const (
	BackendMemory     = "memory"
	BackendFiles      = "files"
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
)

// Config represents the complete batch configuration.
type Config struct {
	Data     DataConfig          `yaml:"data" envconfig:"DATA"`
	Storage  StorageConfig       `yaml:"storage" envconfig:"STORAGE"`
	Cleaning CleaningConfig      `yaml:"cleaning" envconfig:"CLEANING"`
	Run      RunConfig           `yaml:"run" envconfig:"RUN"`
	Logging  LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Metrics  MetricsConfig       `yaml:"metrics" envconfig:"METRICS"`
	Factors  []domain.FactorSpec `yaml:"factors" ignored:"true" validate:"dive"`
}

// DataConfig selects where input datasets come from.
type DataConfig struct {
	Source string `yaml:"source" envconfig:"SOURCE" validate:"oneof=files clickhouse fixtures"`
	Dir    string `yaml:"dir" envconfig:"DIR" validate:"required_if=Source files"`
	Start  string `yaml:"start" envconfig:"START" validate:"omitempty,datetime=2006-01-02"`
	End    string `yaml:"end" envconfig:"END" validate:"omitempty,datetime=2006-01-02"`
}

// StorageConfig selects output stores and their connections.
type StorageConfig struct {
	FactorValues  string `yaml:"factor_values" envconfig:"FACTOR_VALUES" validate:"oneof=memory files clickhouse"`
	Registry      string `yaml:"registry" envconfig:"REGISTRY" validate:"oneof=memory postgres"`
	ClickHouseDSN string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	Migrate       bool   `yaml:"migrate" envconfig:"MIGRATE"`
}

// CleaningConfig mirrors cleaning.Options.
type CleaningConfig struct {
	WinsorLower float64 `yaml:"winsor_lower" envconfig:"WINSOR_LOWER" validate:"gte=0,lt=1"`
	WinsorUpper float64 `yaml:"winsor_upper" envconfig:"WINSOR_UPPER" validate:"gt=0,lte=1"`
	MinCoverage float64 `yaml:"min_coverage" envconfig:"MIN_COVERAGE" validate:"gte=0,lte=1"`
	Fill        string  `yaml:"fill" envconfig:"FILL" validate:"oneof=none median sector_median"`
	Neutralize  string  `yaml:"neutralize" envconfig:"NEUTRALIZE" validate:"oneof=sector global"`
}

// RunConfig controls the batch.
type RunConfig struct {
	Horizon    int     `yaml:"horizon" envconfig:"HORIZON" validate:"gte=1"`
	Quantile   float64 `yaml:"quantile" envconfig:"QUANTILE" validate:"gt=0,lte=0.5"`
	Parallel   bool    `yaml:"parallel" envconfig:"PARALLEL"`
	MaxWorkers int     `yaml:"max_workers" envconfig:"MAX_WORKERS" validate:"gte=0"`
	OutputDir  string  `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=console json"`
}

// MetricsConfig contains the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"omitempty,hostname_port"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Source: SourceFiles,
			Dir:    "data",
		},
		Storage: StorageConfig{
			FactorValues: BackendFiles,
			Registry:     BackendMemory,
			Migrate:      true,
		},
		Cleaning: CleaningConfig{
			WinsorLower: 0.01,
			WinsorUpper: 0.99,
			MinCoverage: 0.3,
			Fill:        string(cleaning.FillMedian),
			Neutralize:  string(cleaning.NeutralizeSector),
		},
		Run: RunConfig{
			Horizon:   1,
			Quantile:  metrics.DefaultQuantile,
			Parallel:  true,
			OutputDir: "output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped
// when path is empty), then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

var validate = validator.New()

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Cleaning.WinsorLower >= c.Cleaning.WinsorUpper {
		return fmt.Errorf("%w: winsor_lower %.4f must be below winsor_upper %.4f",
			ErrInvalidConfig, c.Cleaning.WinsorLower, c.Cleaning.WinsorUpper)
	}

	start, end, err := c.Data.Range()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: data end %s before start %s", ErrInvalidConfig, c.Data.End, c.Data.Start)
	}

	if c.Data.Source == SourceClickHouse || c.Storage.FactorValues == BackendClickHouse {
		if c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("%w: clickhouse_dsn is required for the clickhouse backend", ErrInvalidConfig)
		}
	}
	if c.Storage.Registry == BackendPostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres_dsn is required for the postgres registry", ErrInvalidConfig)
	}
	return nil
}

// Range parses Start and End. Empty values yield zero times.
func (d DataConfig) Range() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = time.Parse(domain.DateLayout, d.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = time.Parse(domain.DateLayout, d.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end: %w", err)
		}
	}
	return start, end, nil
}

// CleaningOptions converts the section to cleaning.Options.
func (c CleaningConfig) CleaningOptions() cleaning.Options {
	return cleaning.Options{
		WinsorLower: c.WinsorLower,
		WinsorUpper: c.WinsorUpper,
		MinCoverage: c.MinCoverage,
		Fill:        cleaning.FillMethod(c.Fill),
		Neutralize:  cleaning.NeutralizeMethod(c.Neutralize),
	}
}
