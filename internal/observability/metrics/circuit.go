package metrics

import (
	"content-gateway/internal/resilience/breaker"
)

// CircuitMetrics adapts the breaker.Metrics interface onto the package's
// Prometheus collectors.
type CircuitMetrics struct{}

// RecordState implements breaker.Metrics.
func (CircuitMetrics) RecordState(destination string, state breaker.State) {
	CircuitBreakerState.WithLabelValues(destination).Set(float64(state))
}

// RecordTransition implements breaker.Metrics.
func (CircuitMetrics) RecordTransition(destination string, from, to breaker.State) {
	CircuitBreakerTransitionsTotal.WithLabelValues(destination, from.String(), to.String()).Inc()
}
