// Package http provides the gateway's own HTTP handlers: health check
// endpoints and the destination health report backed by the circuit
// breaker registry.
package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"content-gateway/internal/resilience/breaker"
)

// HealthResponse represents the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DestinationHealth reports the circuit state of one downstream service.
type DestinationHealth struct {
	Destination       string `json:"destination"`
	State             string `json:"state"`
	EffectiveFailures int    `json:"effective_failures"`
	LastFailureTime   string `json:"last_failure_time,omitempty"`
}

// DestinationsResponse represents the JSON response for the destination
// health endpoint.
type DestinationsResponse struct {
	Healthy      bool                `json:"healthy"`
	Destinations []DestinationHealth `json:"destinations"`
}

// StateReporter exposes circuit breaker stats per destination.
// Implemented by resilience.Client.
type StateReporter interface {
	Snapshot() map[string]breaker.Stats
}

// HealthHandler handles the liveness endpoint.
type HealthHandler struct {
	Version string
}

// ServeHTTP implements http.Handler. The gateway is alive as long as it can
// serve this response; downstream health is reported separately.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
	})
}

// DestinationsHandler reports per-destination circuit state for
// operational monitoring.
type DestinationsHandler struct {
	Reporter StateReporter
}

// ServeHTTP implements http.Handler. Healthy means no destination circuit
// is currently open.
func (h *DestinationsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.Reporter.Snapshot()

	resp := DestinationsResponse{
		Healthy:      true,
		Destinations: make([]DestinationHealth, 0, len(snapshot)),
	}
	for _, stats := range snapshot {
		dh := DestinationHealth{
			Destination:       stats.Destination,
			State:             stats.State,
			EffectiveFailures: stats.EffectiveFailures,
		}
		if !stats.LastFailureTime.IsZero() {
			dh.LastFailureTime = stats.LastFailureTime.UTC().Format(time.RFC3339)
		}
		if stats.State == breaker.StateOpen.String() {
			resp.Healthy = false
		}
		resp.Destinations = append(resp.Destinations, dh)
	}
	sort.Slice(resp.Destinations, func(i, j int) bool {
		return resp.Destinations[i].Destination < resp.Destinations[j].Destination
	})

	w.Header().Set("Content-Type", "application/json")
	if !resp.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
