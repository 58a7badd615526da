// Package downstream performs the actual HTTP calls to downstream services
// and converts their outcomes into the closed set of failure variants the
// resilience core classifies over.
package downstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"content-gateway/internal/resilience/failure"
)

// maxResponseBody bounds how much of a downstream response is buffered.
// Oversized bodies are truncated rather than rejected; the gateway proxies
// API payloads, not media blobs.
const maxResponseBody = 10 << 20 // 10 MB

// Response is a fully buffered downstream response. Bodies are buffered so
// a response can be replayed to the gateway client after the transport
// connection is released.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Caller issues HTTP requests to a single downstream service.
//
// The underlying http.Client carries no timeout of its own: per-attempt
// deadlines are enforced by the caller-supplied context.
type Caller struct {
	service string
	baseURL string
	client  *http.Client
}

// NewCaller creates a caller for the given service name and base URL.
func NewCaller(service, baseURL string) *Caller {
	return &Caller{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Service returns the logical service name this caller addresses.
func (c *Caller) Service() string {
	return c.service
}

// Do issues a single request and returns the buffered response.
//
// Failure mapping:
//   - network-level errors become TransportError with a code such as
//     ECONNRESET, ECONNREFUSED, ETIMEDOUT or ENOTFOUND
//   - responses with status >= 400 become UpstreamStatusError carrying the
//     (bounded) body
//
// A 2xx/3xx response is returned as-is; the resilience core treats it as
// an acceptable result.
func (c *Caller) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", c.service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &failure.TransportError{Code: transportCode(err), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &failure.TransportError{Code: transportCode(err), Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &failure.UpstreamStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       buf,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       buf,
	}, nil
}

// transportCode maps a network-level error onto a transport code string.
// Unknown errors yield an empty code, which defers classification to the
// textual fallback.
func transportCode(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return "ENOTFOUND"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "ETIMEDOUT"
	}

	return ""
}
