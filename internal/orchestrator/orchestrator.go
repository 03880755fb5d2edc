// Package orchestrator runs a batch of factors against shared inputs.
// Flow: load inputs → compute factors in parallel → join → persist values,
// registry and correlations sequentially.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quantlab-factor-library/internal/cleaning"
	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/factor"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/metrics"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/provider"
	"quantlab-factor-library/internal/storage"
)

// BenchmarkFactorName keys the persisted benchmark series in the factor value store.
// Tickers hold the benchmark column names.
const BenchmarkFactorName = "ff_timeseries"

// Orchestrator errors
var (
	ErrNoTables       = errors.New("table provider factory is required")
	ErrNoFactors      = errors.New("no factors to run")
	ErrDuplicateName  = errors.New("duplicate factor name")
	ErrFactorPanicked = errors.New("factor panicked")
)

// Orchestrator coordinates a factor batch run.
type Orchestrator struct {
	// Inputs
	tables provider.Factory

	// Stores
	factorValueStore storage.FactorValueStore
	aggregator       *metrics.Aggregator

	// Options
	cleaning   cleaning.Options
	horizon    int
	quantile   float64
	parallel   bool
	maxWorkers int
	log        zerolog.Logger
	clock      func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required: builds one TableProvider per task.
	Tables provider.Factory

	// Optional stores; nil skips the corresponding persistence step.
	FactorValueStore storage.FactorValueStore
	RegistryStore    storage.RegistryStore
	CorrelationStore storage.CorrelationStore

	Cleaning   cleaning.Options
	Horizon    int     // forward return horizon in dates, default 1
	Quantile   float64 // long-short tail share, default metrics.DefaultQuantile
	Parallel   bool
	MaxWorkers int // default runtime.NumCPU()

	Logger zerolog.Logger
	Clock  func() time.Time // default time.Now
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Horizon <= 0 {
		opts.Horizon = 1
	}
	if opts.Quantile <= 0 {
		opts.Quantile = metrics.DefaultQuantile
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.NumCPU()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Orchestrator{
		tables:           opts.Tables,
		factorValueStore: opts.FactorValueStore,
		aggregator:       metrics.NewAggregator(opts.RegistryStore, opts.CorrelationStore).WithClock(opts.Clock),
		cleaning:         opts.Cleaning,
		horizon:          opts.Horizon,
		quantile:         opts.Quantile,
		parallel:         opts.Parallel,
		maxWorkers:       opts.MaxWorkers,
		log:              observability.Component(opts.Logger, "orchestrator"),
		clock:            opts.Clock,
	}
}

// FactorResult is the outcome of one successful factor.
type FactorResult struct {
	Name      string
	Clean     *matrix.Wide
	Analytics *metrics.Analytics
	Summary   *domain.FactorSummary
	Duration  time.Duration
}

// FactorFailure records a factor that did not complete.
type FactorFailure struct {
	Name string
	Err  error
}

// RunResult contains results from a batch run.
type RunResult struct {
	RunID                 string
	StartedAt             time.Time
	Factors               []*FactorResult // successful factors, input order
	Failed                []FactorFailure // input order
	Correlations          []*domain.CorrelationEntry
	BenchmarkCorrelations []*domain.BenchmarkCorrelation
	Benchmark             *domain.BenchmarkSeries // nil when unavailable
	Errors                []string                // non-fatal persistence errors
}

// Outputs returns clean factors keyed by name.
func (r *RunResult) Outputs() map[string]*matrix.Wide {
	out := make(map[string]*matrix.Wide, len(r.Factors))
	for _, f := range r.Factors {
		out[f.Name] = f.Clean
	}
	return out
}

// inputs are shared read-only across tasks.
type inputs struct {
	forward *matrix.Wide
	sectors domain.SectorMap
	bench   *domain.BenchmarkSeries
}

// slot is written by exactly one task.
type slot struct {
	result *FactorResult
	err    error
}

// Run executes the batch.
// Phases:
//  1. Load shared inputs (prices are required; sectors and benchmark degrade)
//  2. Compute every factor, bounded by MaxWorkers when parallel
//  3. Persist clean factors, registry summaries and correlations
func (o *Orchestrator) Run(ctx context.Context, factors []factor.Factor) (*RunResult, error) {
	if o.tables == nil {
		return nil, ErrNoTables
	}
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}
	seen := make(map[string]bool, len(factors))
	for _, f := range factors {
		if seen[f.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, f.Name())
		}
		seen[f.Name()] = true
	}

	result := &RunResult{RunID: uuid.NewString(), StartedAt: o.clock().UTC()}
	log := o.log.With().Str("run_id", result.RunID).Logger()

	// Phase 1: shared inputs
	phase := time.Now()
	log.Info().Msg("loading shared inputs")
	in, err := o.loadInputs(ctx, log)
	if err != nil {
		observability.RecordRun(false, 0)
		return nil, fmt.Errorf("phase 1 (load inputs) failed: %w", err)
	}
	result.Benchmark = in.bench
	observability.RecordRunPhase("inputs", time.Since(phase).Seconds())

	// Phase 2: compute
	phase = time.Now()
	log.Info().Int("factors", len(factors)).Bool("parallel", o.parallel).Int("max_workers", o.maxWorkers).Msg("computing factors")
	slots, err := o.computeAll(ctx, factors, in)
	if err != nil {
		observability.RecordRun(false, 0)
		return nil, err
	}
	for i, s := range slots {
		if s.err != nil {
			log.Error().Err(s.err).Str("factor", factors[i].Name()).Msg("factor failed")
			result.Failed = append(result.Failed, FactorFailure{Name: factors[i].Name(), Err: s.err})
			continue
		}
		s.result.Summary = o.aggregator.Summarize(s.result.Name, result.RunID, s.result.Analytics)
		result.Factors = append(result.Factors, s.result)
	}
	observability.RecordRunPhase("compute", time.Since(phase).Seconds())
	log.Info().Int("succeeded", len(result.Factors)).Int("failed", len(result.Failed)).Msg("factors computed")

	// Phase 3: sequential persistence
	phase = time.Now()
	o.persist(ctx, result, in, log)
	observability.RecordRunPhase("persist", time.Since(phase).Seconds())

	observability.RecordRun(true, o.clock().Unix())
	log.Info().Int("errors", len(result.Errors)).Msg("run completed")
	return result, nil
}

// loadInputs builds the price-derived forward returns and the optional
// sector map and benchmark series.
func (o *Orchestrator) loadInputs(ctx context.Context, log zerolog.Logger) (*inputs, error) {
	tables := o.tables()

	price, err := tables.PriceWide(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	in := &inputs{forward: provider.ForwardReturns(price, o.horizon)}

	sectors, err := tables.SectorMap(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("sector map unavailable; sector operations skipped")
	} else {
		in.sectors = sectors
	}

	bench, err := tables.Benchmark(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("benchmark series unavailable; benchmark correlation skipped")
	} else {
		in.bench = bench
	}
	return in, nil
}

// computeAll fills one slot per factor. Only context cancellation fails the phase.
func (o *Orchestrator) computeAll(ctx context.Context, factors []factor.Factor, in *inputs) ([]slot, error) {
	slots := make([]slot, len(factors))

	if !o.parallel {
		for i, f := range factors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slots[i] = o.computeOne(ctx, f, in)
		}
		return slots, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxWorkers)
	for i, f := range factors {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = o.computeOne(gctx, f, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, ctx.Err()
}

// computeOne runs one factor on a fresh TableProvider. Panics are
// converted to errors.
func (o *Orchestrator) computeOne(ctx context.Context, f factor.Factor, in *inputs) (s slot) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Debug().Str("factor", f.Name()).Bytes("stack", debug.Stack()).Msg("recovered factor panic")
			s = slot{err: fmt.Errorf("%w: %s: %v", ErrFactorPanicked, f.Name(), r)}
		}
		rows := 0
		if s.result != nil {
			rows = s.result.Clean.Rows()
		}
		observability.RecordFactor(f.Name(), s.err == nil, time.Since(start).Seconds(), rows)
	}()

	clean, err := factor.Compute(ctx, f, o.tables(), in.sectors, o.cleaning)
	if err != nil {
		return slot{err: err}
	}
	return slot{result: &FactorResult{
		Name:      f.Name(),
		Clean:     clean,
		Analytics: metrics.Analyze(clean, in.forward, o.quantile),
		Duration:  time.Since(start),
	}}
}

// persist writes run outputs in a fixed order. Failures are recorded in
// result.Errors and do not stop later steps.
func (o *Orchestrator) persist(ctx context.Context, result *RunResult, in *inputs, log zerolog.Logger) {
	if o.factorValueStore != nil {
		if in.bench != nil {
			if err := o.factorValueStore.Replace(ctx, BenchmarkFactorName, benchmarkValues(in.bench)); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("persist %s: %v", BenchmarkFactorName, err))
			}
		}
		for _, f := range result.Factors {
			if err := o.factorValueStore.Replace(ctx, f.Name, factorValues(f.Name, f.Clean)); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("persist %s: %v", f.Name, err))
			}
		}
		log.Info().Int("factors", len(result.Factors)).Msg("factor values persisted")
	}

	if len(result.Factors) == 0 {
		return
	}

	summaries := make([]*domain.FactorSummary, len(result.Factors))
	for i, f := range result.Factors {
		summaries[i] = f.Summary
	}
	if err := o.aggregator.StoreSummaries(ctx, summaries); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("registry: %v", err))
	}

	result.Correlations = metrics.FactorCorrelation(result.Outputs())
	if in.bench != nil {
		ls := make(map[string]metrics.Series, len(result.Factors))
		for _, f := range result.Factors {
			ls[f.Name] = f.Analytics.LongShort
		}
		result.BenchmarkCorrelations = metrics.BenchmarkCorrelation(ls, in.bench)
	}
	if err := o.aggregator.StoreCorrelations(ctx, result.RunID, result.Correlations, result.BenchmarkCorrelations); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("correlations: %v", err))
	} else {
		observability.RecordCorrelations(len(result.Correlations) + len(result.BenchmarkCorrelations))
	}
}

// factorValues flattens a clean factor into long-format values.
func factorValues(name string, w *matrix.Wide) []*domain.FactorValue {
	cells := w.Stack()
	out := make([]*domain.FactorValue, len(cells))
	for i, c := range cells {
		out[i] = &domain.FactorValue{Factor: name, Date: c.Date, Ticker: c.Ticker, Value: c.Value}
	}
	return out
}

// benchmarkValues flattens the benchmark series with column names as tickers.
func benchmarkValues(b *domain.BenchmarkSeries) []*domain.FactorValue {
	var out []*domain.FactorValue
	names := b.Names()
	for i, d := range b.Dates {
		for _, name := range names {
			v := b.Columns[name][i]
			if math.IsNaN(v) {
				continue
			}
			out = append(out, &domain.FactorValue{Factor: BenchmarkFactorName, Date: d, Ticker: name, Value: v})
		}
	}
	return out
}
