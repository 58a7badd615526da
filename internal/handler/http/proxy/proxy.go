// Package proxy forwards gateway API requests to downstream services
// through the resilient client and maps resilience failures onto gateway
// responses.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"content-gateway/internal/downstream"
	"content-gateway/internal/handler/http/requestid"
	"content-gateway/internal/observability/logging"
	"content-gateway/internal/observability/metrics"
	"content-gateway/internal/resilience"
	"content-gateway/internal/resilience/failure"
)

// maxRequestBody bounds how much of an inbound request body is buffered.
// Bodies must be buffered so retried attempts can replay them.
const maxRequestBody = 10 << 20 // 10 MB

// Executor runs an operation against a destination with resilience
// protection. Implemented by resilience.Client.
type Executor interface {
	Execute(ctx context.Context, destination string, op resilience.Operation) (any, error)
}

// ErrorResponse is the JSON error envelope returned by the gateway.
type ErrorResponse struct {
	Error       string `json:"error"`
	Destination string `json:"destination,omitempty"`
	State       string `json:"state,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// Handler proxies /api/{service}/... requests to the destination table.
type Handler struct {
	executor Executor
	callers  map[string]*downstream.Caller
	logger   *slog.Logger
}

// NewHandler creates a proxy handler over the given destination callers,
// keyed by logical service name.
func NewHandler(executor Executor, callers map[string]*downstream.Caller, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		executor: executor,
		callers:  callers,
		logger:   logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	service, rest, ok := splitServicePath(r.URL.Path)
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrorResponse{Error: "unknown route"})
		return
	}
	caller, ok := h.callers[service]
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrorResponse{Error: "unknown service: " + service})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	logger := logging.WithRequestID(r.Context(), h.logger)
	start := time.Now()

	header := forwardableHeader(r)
	if reqID := requestid.FromContext(r.Context()); reqID != "" {
		header.Set(requestid.RequestIDHeader, reqID)
	}
	if r.URL.RawQuery != "" {
		rest += "?" + r.URL.RawQuery
	}

	result, err := h.executor.Execute(r.Context(), service, func(ctx context.Context) (any, error) {
		return caller.Do(ctx, r.Method, rest, header, body)
	})

	status := h.respond(w, r, service, result, err, logger)
	metrics.ProxyRequestsTotal.WithLabelValues(service, strconv.Itoa(status)).Inc()
	metrics.ProxyRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// respond writes the downstream result or the mapped failure and returns
// the status code sent to the client.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, service string, result any, err error, logger *slog.Logger) int {
	if err == nil {
		resp, ok := result.(*downstream.Response)
		if !ok {
			logger.Error("unexpected downstream result type",
				slog.String("service", service),
				slog.String("type", fmt.Sprintf("%T", result)))
			writeError(w, r, http.StatusBadGateway, ErrorResponse{Error: "invalid downstream response"})
			return http.StatusBadGateway
		}
		copyHeader(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
		return resp.StatusCode
	}

	var openErr *failure.CircuitOpenError
	if errors.As(err, &openErr) {
		logger.Warn("request rejected, circuit open",
			slog.String("service", service),
			slog.String("state", openErr.State))
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusServiceUnavailable, ErrorResponse{
			Error:       "service temporarily unavailable",
			Destination: openErr.Destination,
			State:       openErr.State,
		})
		return http.StatusServiceUnavailable
	}

	var timedOut *failure.TimedOutError
	if errors.As(err, &timedOut) {
		logger.Warn("downstream call timed out",
			slog.String("service", service),
			slog.Duration("timeout", timedOut.Timeout))
		writeError(w, r, http.StatusGatewayTimeout, ErrorResponse{
			Error:       "downstream timeout",
			Destination: timedOut.Destination,
		})
		return http.StatusGatewayTimeout
	}

	var statusErr *failure.UpstreamStatusError
	if errors.As(err, &statusErr) {
		// The downstream responded; pass its status and body through.
		w.WriteHeader(statusErr.StatusCode)
		_, _ = w.Write(statusErr.Body)
		return statusErr.StatusCode
	}

	logger.Error("downstream call failed",
		slog.String("service", service),
		slog.Any("error", err))
	writeError(w, r, http.StatusBadGateway, ErrorResponse{
		Error:       "downstream unavailable",
		Destination: service,
	})
	return http.StatusBadGateway
}

// splitServicePath extracts the service name and remaining path from an
// /api/{service}/... request path.
func splitServicePath(path string) (service, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/api/")
	if trimmed == path || trimmed == "" {
		return "", "", false
	}
	service, rest, found := strings.Cut(trimmed, "/")
	if !found {
		rest = ""
	}
	if service == "" {
		return "", "", false
	}
	return service, "/" + rest, true
}

// hopHeaders are stripped before forwarding, per RFC 9110 §7.6.1.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func forwardableHeader(r *http.Request) http.Header {
	header := r.Header.Clone()
	for _, k := range hopHeaders {
		header.Del(k)
	}
	return header
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	if body.RequestID == "" {
		body.RequestID = requestid.FromContext(r.Context())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
