package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"content-gateway/internal/observability/metrics"
	"content-gateway/internal/observability/tracing"
	"content-gateway/internal/resilience/breaker"
	"content-gateway/internal/resilience/failure"
	"content-gateway/internal/resilience/retry"
	"content-gateway/internal/resilience/timeout"
)

// Operation is the downstream call being protected. It is opaque to the
// client: the closure decides what "acceptable" means and must return an
// error (typically one of the failure package variants) for anything that
// should count against the destination's health.
type Operation func(ctx context.Context) (any, error)

// Client is the resilient-call composition root. Each call is gated on the
// destination's circuit, wrapped in a per-attempt timeout guard, and driven
// through the retry policy; the terminal outcome is recorded back into the
// circuit exactly once.
type Client struct {
	registry  *breaker.Registry
	defaults  Config
	overrides map[string]Config

	mu       sync.Mutex
	runtimes map[string]*destinationRuntime
}

// destinationRuntime caches the per-destination retry policy and resolved
// config so they are built once per destination.
type destinationRuntime struct {
	cfg    Config
	policy *retry.Policy
}

// NewClient creates a resilient client with gateway-wide defaults and
// optional per-destination overrides. The defaults must validate; invalid
// overrides are rejected as well.
func NewClient(defaults Config, overrides map[string]Config) (*Client, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	for destination, cfg := range overrides {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("override for %s: %w", destination, err)
		}
	}

	c := &Client{
		defaults:  defaults,
		overrides: overrides,
		runtimes:  make(map[string]*destinationRuntime),
	}
	c.registry = breaker.NewRegistry(func(destination string) breaker.Config {
		cfg := c.configFor(destination)
		return breaker.Config{
			FailureThreshold: cfg.FailureThreshold,
			SuccessThreshold: cfg.SuccessThreshold,
			OpenTimeout:      cfg.OpenTimeout,
			MonitoringPeriod: cfg.MonitoringPeriod,
			Metrics:          metrics.CircuitMetrics{},
		}
	})
	return c, nil
}

// Execute runs op against the destination with circuit gating, per-attempt
// timeouts and classified retries.
//
// If the destination's circuit is open, it returns a CircuitOpenError
// without invoking op. On terminal failure (a fatal classification or an
// exhausted attempt budget) it records the failure into the circuit and
// returns a DownstreamError tagging the last error with the destination key
// and the attempt count reached. On success it records the success and
// returns the operation's result unchanged.
func (c *Client) Execute(ctx context.Context, destination string, op Operation) (any, error) {
	circuit := c.registry.GetOrCreate(destination)

	if !circuit.CanExecute() {
		metrics.CircuitOpenRejectionsTotal.WithLabelValues(destination).Inc()
		return nil, &failure.CircuitOpenError{
			Destination: destination,
			State:       circuit.State().String(),
		}
	}

	rt := c.runtimeFor(destination)

	ctx, span := tracing.GetTracer().Start(ctx, "resilience.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gateway.destination", destination)),
	)
	defer span.End()

	start := time.Now()
	result, attempts, err := rt.policy.Execute(ctx, func(ctx context.Context) (any, error) {
		return timeout.Wrap(ctx, rt.cfg.RequestTimeout, destination, timeout.Operation(op))
	})
	span.SetAttributes(attribute.Int("gateway.attempts", attempts))

	if err != nil {
		circuit.RecordFailure()
		span.RecordError(err)
		metrics.CallDuration.WithLabelValues(destination, "failure").Observe(time.Since(start).Seconds())

		var timedOut *failure.TimedOutError
		if errors.As(err, &timedOut) {
			metrics.AttemptTimeoutsTotal.WithLabelValues(destination).Inc()
		}
		return nil, &failure.DownstreamError{
			Destination: destination,
			Attempts:    attempts,
			Err:         err,
		}
	}

	circuit.RecordSuccess()
	metrics.CallDuration.WithLabelValues(destination, "success").Observe(time.Since(start).Seconds())
	return result, nil
}

// State returns the current circuit state for the destination, for
// operational and health reporting.
func (c *Client) State(destination string) breaker.State {
	return c.registry.State(destination)
}

// Snapshot returns breaker stats for every destination seen so far.
func (c *Client) Snapshot() map[string]breaker.Stats {
	return c.registry.Snapshot()
}

// configFor resolves the effective config for a destination.
func (c *Client) configFor(destination string) Config {
	if cfg, ok := c.overrides[destination]; ok {
		return cfg
	}
	return c.defaults
}

// runtimeFor returns the cached per-destination runtime, building it on
// first use.
func (c *Client) runtimeFor(destination string) *destinationRuntime {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rt, ok := c.runtimes[destination]; ok {
		return rt
	}

	cfg := c.configFor(destination)
	classifier := failure.NewClassifier(cfg.RetryableStatusCodes, cfg.RetryableErrorCodes)
	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
	}, classifier)
	policy.OnRetry = func(int, error, time.Duration) {
		metrics.RetriesTotal.WithLabelValues(destination).Inc()
	}

	rt := &destinationRuntime{cfg: cfg, policy: policy}
	c.runtimes[destination] = rt
	return rt
}
