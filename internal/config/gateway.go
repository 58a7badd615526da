// Package config loads the gateway configuration from a YAML file with
// environment variable overrides for deployment-specific settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"content-gateway/internal/resilience"
	pkgconfig "content-gateway/pkg/config"
)

// GatewayConfig represents the full gateway configuration.
type GatewayConfig struct {
	// ListenAddr is the address the gateway listens on.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the address the metrics/health server listens on.
	MetricsAddr string `yaml:"metrics_addr"`

	// Resilience holds the gateway-wide resilience defaults.
	Resilience ResilienceSettings `yaml:"resilience"`

	// Destinations maps logical service names to downstream endpoints.
	Destinations map[string]DestinationConfig `yaml:"destinations"`

	// Probe configures the background destination health prober.
	Probe ProbeConfig `yaml:"probe"`
}

// DestinationConfig describes one downstream service.
type DestinationConfig struct {
	// BaseURL is the root URL requests to this service are forwarded to.
	BaseURL string `yaml:"base_url"`

	// HealthPath is the path probed by the background health prober.
	// Default: /healthz
	HealthPath string `yaml:"health_path"`

	// Resilience overrides the gateway-wide resilience defaults for this
	// destination. Unset fields inherit the defaults.
	Resilience *ResilienceSettings `yaml:"resilience"`
}

// ResilienceSettings mirrors resilience.Config with optional fields so a
// destination override can change only what it names. Delay and timeout
// fields are integer milliseconds.
type ResilienceSettings struct {
	MaxAttempts          *int     `yaml:"max_attempts"`
	InitialDelayMs       *int     `yaml:"initial_delay_ms"`
	MaxDelayMs           *int     `yaml:"max_delay_ms"`
	Multiplier           *float64 `yaml:"multiplier"`
	RetryableStatusCodes []int    `yaml:"retryable_status_codes"`
	RetryableErrorCodes  []string `yaml:"retryable_error_codes"`
	FailureThreshold     *int     `yaml:"failure_threshold"`
	SuccessThreshold     *int     `yaml:"success_threshold"`
	OpenTimeoutMs        *int     `yaml:"open_timeout_ms"`
	MonitoringPeriodMs   *int     `yaml:"monitoring_period_ms"`
	RequestTimeoutMs     *int     `yaml:"request_timeout_ms"`
}

// ProbeConfig configures the background destination health prober.
type ProbeConfig struct {
	// Enabled turns the prober on. Default: false.
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for probe runs. Default: every minute.
	Schedule string `yaml:"schedule"`

	// RatePerSecond paces probes across destinations. Default: 2.
	RatePerSecond float64 `yaml:"rate_per_second"`

	// Burst is the probe rate limiter burst size. Default: 5.
	Burst int `yaml:"burst"`
}

// Load reads the gateway configuration.
//
// When path is non-empty the YAML file is loaded first; environment
// variables then override the deployment settings (GATEWAY_ADDR,
// METRICS_ADDR) and the resilience defaults (RESILIENCE_* keys). The
// result is validated before being returned.
func Load(path string) (*GatewayConfig, error) {
	cfg := &GatewayConfig{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		Probe: ProbeConfig{
			Schedule:      "* * * * *",
			RatePerSecond: 2.0,
			Burst:         5,
		},
	}

	if path != "" {
		// #nosec G304 -- path comes from a CLI flag or env var set by the
		// operator, not from request input.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ListenAddr = pkgconfig.GetEnvString("GATEWAY_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = pkgconfig.GetEnvString("METRICS_ADDR", cfg.MetricsAddr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for operator mistakes that must stop
// startup: unparseable destination URLs and invalid resilience settings.
func (c *GatewayConfig) Validate() error {
	for name, dest := range c.Destinations {
		if dest.BaseURL == "" {
			return fmt.Errorf("destination %s: base_url is required", name)
		}
		u, err := url.Parse(dest.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("destination %s: invalid base_url %q", name, dest.BaseURL)
		}
	}
	if err := c.ResilienceDefaults().Validate(); err != nil {
		return fmt.Errorf("resilience defaults: %w", err)
	}
	for name, cfg := range c.ResilienceOverrides() {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("destination %s resilience: %w", name, err)
		}
	}
	if c.Probe.Enabled {
		if c.Probe.Schedule == "" {
			return fmt.Errorf("probe: schedule is required when enabled")
		}
		if c.Probe.RatePerSecond <= 0 {
			return fmt.Errorf("probe: rate_per_second must be positive, got %g", c.Probe.RatePerSecond)
		}
	}
	return nil
}

// ResilienceDefaults resolves the gateway-wide resilience configuration:
// built-in defaults, overlaid with the YAML resilience section, overlaid
// with RESILIENCE_* environment variables.
func (c *GatewayConfig) ResilienceDefaults() resilience.Config {
	cfg := c.Resilience.apply(resilience.DefaultConfig())

	cfg.MaxAttempts = pkgconfig.GetEnvInt("RESILIENCE_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.InitialDelay = pkgconfig.GetEnvDuration("RESILIENCE_INITIAL_DELAY", cfg.InitialDelay)
	cfg.MaxDelay = pkgconfig.GetEnvDuration("RESILIENCE_MAX_DELAY", cfg.MaxDelay)
	cfg.Multiplier = pkgconfig.GetEnvFloat("RESILIENCE_MULTIPLIER", cfg.Multiplier)
	cfg.RetryableStatusCodes = pkgconfig.GetEnvIntList("RESILIENCE_RETRYABLE_STATUSES", cfg.RetryableStatusCodes)
	cfg.RetryableErrorCodes = pkgconfig.GetEnvStringList("RESILIENCE_RETRYABLE_CODES", cfg.RetryableErrorCodes)
	cfg.FailureThreshold = pkgconfig.GetEnvInt("RESILIENCE_FAILURE_THRESHOLD", cfg.FailureThreshold)
	cfg.SuccessThreshold = pkgconfig.GetEnvInt("RESILIENCE_SUCCESS_THRESHOLD", cfg.SuccessThreshold)
	cfg.OpenTimeout = pkgconfig.GetEnvDuration("RESILIENCE_OPEN_TIMEOUT", cfg.OpenTimeout)
	cfg.MonitoringPeriod = pkgconfig.GetEnvDuration("RESILIENCE_MONITORING_PERIOD", cfg.MonitoringPeriod)
	cfg.RequestTimeout = pkgconfig.GetEnvDuration("RESILIENCE_REQUEST_TIMEOUT", cfg.RequestTimeout)

	return cfg
}

// ResilienceOverrides returns the per-destination resilience configs for
// destinations that declare overrides, resolved against the defaults.
func (c *GatewayConfig) ResilienceOverrides() map[string]resilience.Config {
	defaults := c.Resilience.apply(resilience.DefaultConfig())

	overrides := make(map[string]resilience.Config)
	for name, dest := range c.Destinations {
		if dest.Resilience == nil {
			continue
		}
		overrides[name] = dest.Resilience.apply(defaults)
	}
	return overrides
}

// HealthPathFor returns the health probe path for a destination.
func (c *GatewayConfig) HealthPathFor(name string) string {
	if dest, ok := c.Destinations[name]; ok && dest.HealthPath != "" {
		return dest.HealthPath
	}
	return "/healthz"
}

// apply overlays the settings onto base and returns the result. Nil fields
// inherit from base.
func (s *ResilienceSettings) apply(base resilience.Config) resilience.Config {
	if s == nil {
		return base
	}
	cfg := base
	if s.MaxAttempts != nil {
		cfg.MaxAttempts = *s.MaxAttempts
	}
	if s.InitialDelayMs != nil {
		cfg.InitialDelay = time.Duration(*s.InitialDelayMs) * time.Millisecond
	}
	if s.MaxDelayMs != nil {
		cfg.MaxDelay = time.Duration(*s.MaxDelayMs) * time.Millisecond
	}
	if s.Multiplier != nil {
		cfg.Multiplier = *s.Multiplier
	}
	if len(s.RetryableStatusCodes) > 0 {
		cfg.RetryableStatusCodes = s.RetryableStatusCodes
	}
	if len(s.RetryableErrorCodes) > 0 {
		cfg.RetryableErrorCodes = s.RetryableErrorCodes
	}
	if s.FailureThreshold != nil {
		cfg.FailureThreshold = *s.FailureThreshold
	}
	if s.SuccessThreshold != nil {
		cfg.SuccessThreshold = *s.SuccessThreshold
	}
	if s.OpenTimeoutMs != nil {
		cfg.OpenTimeout = time.Duration(*s.OpenTimeoutMs) * time.Millisecond
	}
	if s.MonitoringPeriodMs != nil {
		cfg.MonitoringPeriod = time.Duration(*s.MonitoringPeriodMs) * time.Millisecond
	}
	if s.RequestTimeoutMs != nil {
		cfg.RequestTimeout = time.Duration(*s.RequestTimeoutMs) * time.Millisecond
	}
	return cfg
}
