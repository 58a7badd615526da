package failure

import (
	"errors"
	"strings"
)

// Default retryable signals. Used whenever a classifier is constructed with
// empty code sets.
var (
	// DefaultRetryableStatusCodes are the HTTP statuses considered transient.
	DefaultRetryableStatusCodes = []int{408, 429, 500, 502, 503, 504}

	// DefaultRetryableErrorCodes are the transport codes considered transient.
	DefaultRetryableErrorCodes = []string{"ECONNRESET", "ETIMEDOUT", "ENOTFOUND", "ECONNREFUSED"}
)

// retryableSubstrings are matched case-insensitively against the error
// message when no structured signal is present.
var retryableSubstrings = []string{"timeout", "network", "connection"}

// Classifier decides whether a failed call is worth retrying.
//
// Classification is checked in fixed precedence:
//  1. An explicit response status code (UpstreamStatusError) is retryable
//     iff it is in the retryable status set.
//  2. A transport-level error code (TransportError with a non-empty Code)
//     is retryable iff it is in the retryable code set.
//  3. Otherwise the error message is scanned case-insensitively for
//     "timeout", "network" or "connection".
//  4. Anything else is fatal and never retried.
//
// Structured signals are always consulted before the textual fallback.
type Classifier struct {
	statusCodes map[int]struct{}
	errorCodes  map[string]struct{}
}

// NewClassifier creates a classifier with the given retryable status codes
// and transport error codes. Empty slices fall back to the defaults.
func NewClassifier(statusCodes []int, errorCodes []string) *Classifier {
	if len(statusCodes) == 0 {
		statusCodes = DefaultRetryableStatusCodes
	}
	if len(errorCodes) == 0 {
		errorCodes = DefaultRetryableErrorCodes
	}

	c := &Classifier{
		statusCodes: make(map[int]struct{}, len(statusCodes)),
		errorCodes:  make(map[string]struct{}, len(errorCodes)),
	}
	for _, code := range statusCodes {
		c.statusCodes[code] = struct{}{}
	}
	for _, code := range errorCodes {
		c.errorCodes[strings.ToUpper(code)] = struct{}{}
	}
	return c
}

// Retryable reports whether err is worth retrying.
func (c *Classifier) Retryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		_, ok := c.statusCodes[statusErr.StatusCode]
		return ok
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Code != "" {
		_, ok := c.errorCodes[strings.ToUpper(transportErr.Code)]
		return ok
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
