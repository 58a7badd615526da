// Package breaker implements a per-destination circuit breaker with a
// sliding window of failure timestamps. It prevents cascading failures by
// failing fast while a downstream dependency is unhealthy.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and calls are allowed.
	// This is the normal operating state.
	StateClosed State = iota

	// StateOpen indicates the circuit is open due to excessive failures.
	// Calls are rejected without being attempted until the open timeout
	// elapses.
	StateOpen

	// StateHalfOpen indicates the circuit is testing recovery: calls are
	// allowed through as probes until enough consecutive successes close
	// the circuit, or a single failure reopens it.
	StateHalfOpen
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Metrics receives circuit state observations. Implementations must be
// safe for concurrent use.
type Metrics interface {
	// RecordState records the current state of a destination's circuit.
	RecordState(destination string, state State)

	// RecordTransition records a state transition for a destination.
	RecordTransition(destination string, from, to State)
}

// NoOpMetrics is a Metrics implementation that discards all observations.
type NoOpMetrics struct{}

// RecordState implements Metrics.
func (NoOpMetrics) RecordState(string, State) {}

// RecordTransition implements Metrics.
func (NoOpMetrics) RecordTransition(string, State, State) {}

// Config holds the configuration for a single circuit breaker.
type Config struct {
	// FailureThreshold is the number of failures within the monitoring
	// period required to open the circuit. Default: 5.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in half-open
	// state required to close the circuit. Default: 2.
	SuccessThreshold int

	// OpenTimeout is how long an open circuit waits before allowing a
	// recovery probe (half-open). Default: 30 seconds.
	OpenTimeout time.Duration

	// MonitoringPeriod is the sliding window within which failures are
	// counted. Failures older than this are pruned. Default: 60 seconds.
	MonitoringPeriod time.Duration

	// Clock provides time abstraction for testing. Default: SystemClock.
	Clock Clock

	// Metrics receives state observations. Default: NoOpMetrics.
	Metrics Metrics
}

// Breaker is the circuit state machine for one destination.
//
// State transitions:
//   - Closed → Open: failures within the monitoring window reach
//     FailureThreshold
//   - Open → Half-Open: OpenTimeout has elapsed since the last failure
//     (applied lazily on inspection)
//   - Half-Open → Closed: SuccessThreshold consecutive successes
//   - Half-Open → Open: any failure
//
// A success while closed clears the accumulated failure window entirely.
type Breaker struct {
	destination string
	cfg         Config

	mu              sync.Mutex
	state           State
	failureTimes    []time.Time
	successCount    int
	lastFailureTime time.Time
}

// New creates a circuit breaker for the given destination key.
//
// Zero or nil config fields are replaced with defaults.
func New(destination string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.MonitoringPeriod <= 0 {
		cfg.MonitoringPeriod = 60 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoOpMetrics{}
	}

	b := &Breaker{
		destination: destination,
		cfg:         cfg,
		state:       StateClosed,
	}
	cfg.Metrics.RecordState(destination, StateClosed)
	return b
}

// CanExecute reports whether a call to the destination may be attempted.
// It returns false only while the circuit is strictly open and the open
// timeout has not yet elapsed; the open→half-open transition is applied
// first when due.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	return b.state != StateOpen
}

// State returns the current state, applying the lazy open→half-open
// transition when the open timeout has elapsed. Repeated calls with no new
// events never change state beyond that timeout-driven transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	return b.state
}

// RecordSuccess records a successful call outcome.
//
// In half-open state it counts toward closing the circuit; in closed state
// it fully resets the failure window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(b.cfg.Clock.Now())

	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.successCount = 0
			b.failureTimes = b.failureTimes[:0]
			b.transitionLocked(StateClosed)
		}
	case StateClosed:
		// The window counts failures since the last success, not
		// failures per period.
		b.failureTimes = b.failureTimes[:0]
	}
}

// RecordFailure records a failed call outcome.
//
// In half-open state a single failure immediately reopens the circuit. In
// closed state the circuit opens once the effective failure count within
// the monitoring window reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock.Now()
	b.failureTimes = append(b.failureTimes, now)
	b.lastFailureTime = now
	b.pruneLocked(now)

	switch b.state {
	case StateHalfOpen:
		b.successCount = 0
		b.transitionLocked(StateOpen)
	case StateClosed:
		if len(b.failureTimes) >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	}
}

// Stats is a point-in-time snapshot of a breaker, for health reporting.
type Stats struct {
	Destination       string    `json:"destination"`
	State             string    `json:"state"`
	EffectiveFailures int       `json:"effective_failures"`
	SuccessCount      int       `json:"success_count"`
	LastFailureTime   time.Time `json:"last_failure_time,omitempty"`
}

// Stats returns current breaker statistics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	b.pruneLocked(b.cfg.Clock.Now())
	return Stats{
		Destination:       b.destination,
		State:             b.state.String(),
		EffectiveFailures: len(b.failureTimes),
		SuccessCount:      b.successCount,
		LastFailureTime:   b.lastFailureTime,
	}
}

// maybeHalfOpenLocked transitions open→half-open once the open timeout has
// elapsed since the last failure. Callers must hold b.mu.
func (b *Breaker) maybeHalfOpenLocked() {
	if b.state != StateOpen {
		return
	}
	if b.cfg.Clock.Now().Sub(b.lastFailureTime) >= b.cfg.OpenTimeout {
		b.successCount = 0
		b.transitionLocked(StateHalfOpen)
	}
}

// pruneLocked drops failure timestamps older than the monitoring period.
// Callers must hold b.mu.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.MonitoringPeriod)
	i := 0
	for i < len(b.failureTimes) && b.failureTimes[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.failureTimes = append(b.failureTimes[:0], b.failureTimes[i:]...)
	}
}

// transitionLocked changes state and emits observability signals. Callers
// must hold b.mu.
func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	b.cfg.Metrics.RecordState(b.destination, to)
	b.cfg.Metrics.RecordTransition(b.destination, from, to)

	slog.Warn("circuit breaker state changed",
		slog.String("destination", b.destination),
		slog.String("previous_state", from.String()),
		slog.String("new_state", to.String()),
		slog.Int("effective_failures", len(b.failureTimes)),
		slog.Duration("open_timeout", b.cfg.OpenTimeout),
	)
}
