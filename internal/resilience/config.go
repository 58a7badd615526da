package resilience

import (
	"fmt"
	"time"
)

// Config holds the full resilience configuration for one destination
// (or the gateway-wide defaults). It is immutable once handed to a Client.
type Config struct {
	// MaxAttempts is the maximum number of invocations of the underlying
	// operation, including the first attempt. Must be >= 1.
	MaxAttempts int

	// InitialDelay is the backoff delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff base delay. Must be >= InitialDelay.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier. Must be >= 1.
	Multiplier float64

	// RetryableStatusCodes are the HTTP statuses considered transient.
	// Empty means the default set {408, 429, 500, 502, 503, 504}.
	RetryableStatusCodes []int

	// RetryableErrorCodes are the transport codes considered transient.
	// Empty means the default set {ECONNRESET, ETIMEDOUT, ENOTFOUND,
	// ECONNREFUSED}.
	RetryableErrorCodes []string

	// FailureThreshold is the number of failures within MonitoringPeriod
	// that open the circuit. Must be >= 1.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// that close the circuit. Must be >= 1.
	SuccessThreshold int

	// OpenTimeout is how long an open circuit waits before allowing a
	// recovery probe.
	OpenTimeout time.Duration

	// MonitoringPeriod is the sliding window within which failures count
	// toward FailureThreshold.
	MonitoringPeriod time.Duration

	// RequestTimeout bounds each individual attempt, not the whole retry
	// sequence. Zero disables the per-attempt guard.
	RequestTimeout time.Duration
}

// DefaultConfig returns the gateway-wide default resilience configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		MonitoringPeriod: 60 * time.Second,
		RequestTimeout:   10 * time.Second,
	}
}

// DiscoveryConfig returns configuration optimized for the discovery
// service: latency-sensitive search traffic, fast retries, tight attempt
// budget.
func DiscoveryConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = 1 * time.Second
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

// MediaConfig returns configuration optimized for the media service: large
// payloads, generous per-attempt budget, conservative retries.
func MediaConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.RequestTimeout = 30 * time.Second
	return cfg
}

// IngestConfig returns configuration optimized for the ingest service:
// background job submission can afford aggressive retries.
func IngestConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 5
	cfg.MaxDelay = 10 * time.Second
	return cfg
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial delay must be >= 0, got %v", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max delay %v must be >= initial delay %v", c.MaxDelay, c.InitialDelay)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %g", c.Multiplier)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be >= 1, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold < 1 {
		return fmt.Errorf("success threshold must be >= 1, got %d", c.SuccessThreshold)
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("open timeout must be >= 0, got %v", c.OpenTimeout)
	}
	if c.MonitoringPeriod < 0 {
		return fmt.Errorf("monitoring period must be >= 0, got %v", c.MonitoringPeriod)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be >= 0, got %v", c.RequestTimeout)
	}
	return nil
}
