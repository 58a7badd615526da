// Package metrics provides centralized Prometheus metrics for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resilience metrics track outbound call protection behavior
var (
	// CircuitBreakerState tracks the circuit state per destination.
	// Values: 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Circuit breaker state per destination (0=closed, 1=open, 2=half-open)",
		},
		[]string{"destination"},
	)

	// CircuitBreakerTransitionsTotal counts circuit state transitions
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"destination", "from", "to"},
	)

	// CircuitOpenRejectionsTotal counts calls rejected fail-fast because
	// the destination's circuit was open
	CircuitOpenRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_open_rejections_total",
			Help: "Total calls rejected without attempt due to an open circuit",
		},
		[]string{"destination"},
	)

	// RetriesTotal counts retry attempts (not first attempts) per destination
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_retries_total",
			Help: "Total retry attempts issued to destinations",
		},
		[]string{"destination"},
	)

	// AttemptTimeoutsTotal counts attempts that exceeded the per-attempt budget
	AttemptTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_attempt_timeouts_total",
			Help: "Total attempts that exceeded the per-attempt timeout",
		},
		[]string{"destination"},
	)

	// CallDuration measures end-to-end resilient call duration per destination
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "End-to-end duration of resilient calls, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"destination", "outcome"},
	)
)

// Proxy metrics track inbound gateway traffic
var (
	// ProxyRequestsTotal counts proxied requests by service and status
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_proxy_requests_total",
			Help: "Total proxied requests by downstream service and response status",
		},
		[]string{"service", "status"},
	)

	// ProxyRequestDuration measures proxied request duration in seconds
	ProxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_proxy_request_duration_seconds",
			Help:    "Proxied request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
)

// Prober metrics track background destination health probing
var (
	// ProbesTotal counts health probes by destination and outcome
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_probes_total",
			Help: "Total destination health probes by outcome",
		},
		[]string{"destination", "outcome"},
	)
)
