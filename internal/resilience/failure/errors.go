// Package failure defines the closed set of error variants produced at the
// transport boundary and the classifier that decides whether a failed call
// is worth retrying.
package failure

import (
	"fmt"
	"time"
)

// CircuitOpenError is returned when a call is rejected without being
// attempted because the destination's circuit is open.
type CircuitOpenError struct {
	// Destination is the logical service name the call was addressed to.
	Destination string

	// State is the circuit state observed at rejection time.
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s (state=%s)", e.Destination, e.State)
}

// TimedOutError indicates that a single attempt exceeded its per-attempt
// time budget. The underlying call may still complete on the remote side;
// its result is discarded.
type TimedOutError struct {
	Destination string
	Timeout     time.Duration
}

// Error implements the error interface. The message deliberately contains
// the word "timeout" so the textual classification fallback treats the
// error as retryable even when structured signals are absent.
func (e *TimedOutError) Error() string {
	return fmt.Sprintf("%s: request timeout after %v", e.Destination, e.Timeout)
}

// TransportError is a network-level failure carrying a transport error code
// such as ECONNRESET or ECONNREFUSED. Code may be empty when the underlying
// error could not be mapped to a known code; classification then falls back
// to message inspection.
type TransportError struct {
	Code string
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error %s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamStatusError indicates the downstream service responded, but with
// an error-class HTTP status. The response body is retained (bounded) so
// callers can surface upstream diagnostics.
type UpstreamStatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Error implements the error interface.
func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Status)
}

// DownstreamError is the terminal error returned by the resilient client
// when a call fails for good: it tags the last underlying error with the
// destination key and the number of attempts that were made.
type DownstreamError struct {
	Destination string
	Attempts    int
	Err         error
}

// Error implements the error interface.
func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s: call failed after %d attempt(s): %v", e.Destination, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *DownstreamError) Unwrap() error {
	return e.Err
}
