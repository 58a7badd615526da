package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	hhttp "content-gateway/internal/handler/http"
)

// newMetricsServer builds the operational server.
//
// Endpoints:
//   - GET /metrics - Prometheus metrics (scraped by the Prometheus server)
//   - GET /health - liveness probe
//   - GET /health/destinations - per-destination circuit state report
func newMetricsServer(addr string, reporter hhttp.StateReporter, version string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", &hhttp.HealthHandler{Version: version})
	mux.Handle("/health/destinations", &hhttp.DestinationsHandler{Reporter: reporter})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
