// Package retry provides retry logic with exponential backoff and jitter.
// Failed operations are retried only when the failure classifier deems the
// error transient, and never more than the configured attempt budget.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"content-gateway/internal/resilience/failure"
)

// jitterFraction is the fraction of the base delay added as uniform random
// jitter to avoid synchronized retry storms.
const jitterFraction = 0.3

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of times the operation is invoked,
	// including the first attempt.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff base delay. The actual delay
	// may exceed it by up to the jitter fraction.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay computes the backoff delay after the attempt-th failed attempt.
// Attempt numbering starts at 1 for the first retry.
//
// The base delay grows as InitialDelay * Multiplier^(attempt-1), capped at
// MaxDelay; uniform jitter in [0, 0.3*base) is added on top, so the result
// never exceeds MaxDelay * 1.3.
func Delay(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if base > float64(cfg.MaxDelay) {
		base = float64(cfg.MaxDelay)
	}
	// #nosec G404 -- math/rand is acceptable for backoff jitter; no
	// cryptographic randomness is required.
	jitter := rand.Float64() * jitterFraction * base
	return time.Duration(math.Floor(base + jitter))
}

// Operation is a single attempt of the underlying call.
type Operation func(ctx context.Context) (any, error)

// Policy drives repeated attempts of an operation using a failure
// classifier to decide retryability and exponential backoff between
// attempts.
type Policy struct {
	cfg        Config
	classifier *failure.Classifier

	// wait suspends between attempts. Overridable in tests to capture the
	// computed delays without sleeping.
	wait func(ctx context.Context, d time.Duration) error

	// OnRetry, when non-nil, is invoked before each backoff wait with the
	// attempt number just failed, the classified error and the delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewPolicy creates a retry policy. A nil classifier uses the default
// retryable status and transport code sets.
func NewPolicy(cfg Config, classifier *failure.Classifier) *Policy {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if classifier == nil {
		classifier = failure.NewClassifier(nil, nil)
	}
	return &Policy{
		cfg:        cfg,
		classifier: classifier,
		wait:       waitFor,
	}
}

// Execute invokes op until it succeeds, fails fatally, or the attempt
// budget is exhausted. It returns the operation result, the number of
// attempts made, and the final error.
//
// The operation is invoked at most MaxAttempts times. A fatal
// (non-retryable) error surfaces immediately with its original
// classification; retryable errors are retried silently until exhausted.
func (p *Policy) Execute(ctx context.Context, op Operation) (any, int, error) {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return result, attempt, nil
		}
		lastErr = err

		if !p.classifier.Retryable(err) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return nil, attempt, err
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}

		delay := Delay(attempt, p.cfg)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if werr := p.wait(ctx, delay); werr != nil {
			return nil, attempt, fmt.Errorf("retry aborted: %w", werr)
		}
	}

	return nil, p.cfg.MaxAttempts, lastErr
}

// waitFor suspends for d with context cancellation support. It never
// blocks past ctx.
func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
