package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quantlab-factor-library/internal/factor"
	"quantlab-factor-library/internal/observability"
	"quantlab-factor-library/internal/orchestrator"
	"quantlab-factor-library/internal/reporting"
)

// BatchRunner runs one factor batch. *pipeline.FactorPipeline implements it.
type BatchRunner interface {
	Run(ctx context.Context, factors []factor.Factor) (*orchestrator.RunResult, *reporting.Report, error)
}

// Scheduler runs a batch on a fixed interval and reports its state on /status.
type Scheduler struct {
	runner   BatchRunner
	factors  []factor.Factor
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	// State
	mu        sync.Mutex
	started   time.Time
	running   bool
	runs      int
	failures  int
	lastRun   time.Time
	lastRunID string
	lastError string
}

// NewScheduler creates a scheduler.
func NewScheduler(runner BatchRunner, factors []factor.Factor, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		factors:  factors,
		interval: interval,
		log:      observability.Component(log, "scheduler"),
		now:      time.Now,
	}
}

// Run executes a batch immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = s.now()
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval).Msg("starting batch scheduler")
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one batch. It returns false when a batch is already running.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info().Msg("batch already running, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	start := time.Now()
	result, _, err := s.runner.Run(ctx, s.factors)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = s.now()
	s.runs++
	if err != nil {
		s.failures++
		s.lastError = err.Error()
		s.log.Error().Err(err).Msg("batch failed")
		return true
	}
	s.lastRunID = result.RunID
	s.lastError = ""
	s.log.Info().
		Str("run_id", result.RunID).
		Int("succeeded", len(result.Factors)).
		Int("failed", len(result.Failed)).
		Dur("elapsed", time.Since(start)).
		Msg("batch completed")
	return true
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "idle"
	if s.running {
		status = "running"
	}
	uptime := time.Duration(0)
	if !s.started.IsZero() {
		uptime = s.now().Sub(s.started)
	}
	return StatusResponse{
		Status:    status,
		Uptime:    uptime.String(),
		Runs:      s.runs,
		Failures:  s.failures,
		Running:   s.running,
		LastRun:   s.lastRun,
		LastRunID: s.lastRunID,
		LastError: s.lastError,
	}
}

// ServeHTTP writes Status as JSON.
func (s *Scheduler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}
