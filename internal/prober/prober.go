// Package prober periodically probes downstream destinations through the
// resilient client so that circuit state and destination health reflect
// reality even during quiet traffic periods.
package prober

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"content-gateway/internal/downstream"
	"content-gateway/internal/observability/metrics"
	"content-gateway/internal/resilience"
)

// Executor runs an operation against a destination with resilience
// protection. Implemented by resilience.Client.
type Executor interface {
	Execute(ctx context.Context, destination string, op resilience.Operation) (any, error)
}

// Target is one destination to probe.
type Target struct {
	// Caller issues the probe request.
	Caller *downstream.Caller

	// HealthPath is the path probed, e.g. /healthz.
	HealthPath string
}

// Config holds prober configuration.
type Config struct {
	// Schedule is a cron expression for probe runs.
	Schedule string

	// RatePerSecond paces probes so a run never bursts the destinations.
	RatePerSecond float64

	// Burst is the rate limiter burst size.
	Burst int
}

// Prober runs scheduled health probes against all configured destinations.
//
// Probes go through the resilient client like real traffic, so a
// recovering destination is probed half-open and a healthy probe closes
// its circuit.
type Prober struct {
	executor Executor
	targets  map[string]Target
	limiter  *rate.Limiter
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
}

// New creates a prober. It does not start probing until Start is called.
func New(executor Executor, targets map[string]Target, cfg Config, logger *slog.Logger) (*Prober, error) {
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("prober: schedule is required")
	}
	if cfg.RatePerSecond <= 0 {
		return nil, fmt.Errorf("prober: rate must be positive, got %g", cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		executor: executor,
		targets:  targets,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:   logger,
		cron:     cron.New(),
		schedule: cfg.Schedule,
	}, nil
}

// Start schedules probe runs. The provided context bounds each run and
// stopping the prober.
func (p *Prober) Start(ctx context.Context) error {
	_, err := p.cron.AddFunc(p.schedule, func() {
		p.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("prober: failed to schedule: %w", err)
	}
	p.cron.Start()
	p.logger.Info("prober started",
		slog.String("schedule", p.schedule),
		slog.Int("destinations", len(p.targets)))
	return nil
}

// Stop stops the scheduler. Probes already running are not interrupted.
func (p *Prober) Stop() {
	p.cron.Stop()
}

// RunOnce probes every destination concurrently, paced by the rate
// limiter, and records the outcomes.
func (p *Prober) RunOnce(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	for name, target := range p.targets {
		g.Go(func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			p.probe(ctx, name, target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("probe run aborted", slog.Any("error", err))
	}
}

// probe issues one health check through the resilient client.
func (p *Prober) probe(ctx context.Context, name string, target Target) {
	_, err := p.executor.Execute(ctx, name, func(ctx context.Context) (any, error) {
		return target.Caller.Do(ctx, http.MethodGet, target.HealthPath, nil, nil)
	})
	if err != nil {
		metrics.ProbesTotal.WithLabelValues(name, "failure").Inc()
		p.logger.Warn("destination probe failed",
			slog.String("destination", name),
			slog.Any("error", err))
		return
	}
	metrics.ProbesTotal.WithLabelValues(name, "success").Inc()
	p.logger.Debug("destination probe succeeded",
		slog.String("destination", name))
}
