package failure

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifier_Retryable_Defaults(t *testing.T) {
	c := NewClassifier(nil, nil)

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			retryable: false,
		},
		{
			name:      "status 500",
			err:       &UpstreamStatusError{StatusCode: 500, Status: "500 Internal Server Error"},
			retryable: true,
		},
		{
			name:      "status 502",
			err:       &UpstreamStatusError{StatusCode: 502, Status: "502 Bad Gateway"},
			retryable: true,
		},
		{
			name:      "status 503",
			err:       &UpstreamStatusError{StatusCode: 503, Status: "503 Service Unavailable"},
			retryable: true,
		},
		{
			name:      "status 504",
			err:       &UpstreamStatusError{StatusCode: 504, Status: "504 Gateway Timeout"},
			retryable: true,
		},
		{
			name:      "status 429",
			err:       &UpstreamStatusError{StatusCode: 429, Status: "429 Too Many Requests"},
			retryable: true,
		},
		{
			name:      "status 408",
			err:       &UpstreamStatusError{StatusCode: 408, Status: "408 Request Timeout"},
			retryable: true,
		},
		{
			name:      "status 400",
			err:       &UpstreamStatusError{StatusCode: 400, Status: "400 Bad Request"},
			retryable: false,
		},
		{
			name:      "status 404",
			err:       &UpstreamStatusError{StatusCode: 404, Status: "404 Not Found"},
			retryable: false,
		},
		{
			name:      "transport ECONNRESET",
			err:       &TransportError{Code: "ECONNRESET", Err: errors.New("read: connection reset by peer")},
			retryable: true,
		},
		{
			name:      "transport ECONNREFUSED",
			err:       &TransportError{Code: "ECONNREFUSED", Err: errors.New("dial: connection refused")},
			retryable: true,
		},
		{
			name:      "transport ETIMEDOUT",
			err:       &TransportError{Code: "ETIMEDOUT", Err: errors.New("i/o timeout")},
			retryable: true,
		},
		{
			name:      "transport ENOTFOUND",
			err:       &TransportError{Code: "ENOTFOUND", Err: errors.New("no such host")},
			retryable: true,
		},
		{
			name:      "transport unknown code",
			err:       &TransportError{Code: "EPIPE", Err: errors.New("broken pipe")},
			retryable: false,
		},
		{
			name:      "per-attempt timeout",
			err:       &TimedOutError{Destination: "cms-service", Timeout: time.Second},
			retryable: true,
		},
		{
			name:      "message fallback timeout",
			err:       errors.New("operation Timeout exceeded"),
			retryable: true,
		},
		{
			name:      "message fallback network",
			err:       errors.New("temporary NETWORK glitch"),
			retryable: true,
		},
		{
			name:      "message fallback connection",
			err:       errors.New("lost connection to host"),
			retryable: true,
		},
		{
			name:      "generic error",
			err:       errors.New("invalid payload"),
			retryable: false,
		},
		{
			name:      "wrapped status error",
			err:       fmt.Errorf("call failed: %w", &UpstreamStatusError{StatusCode: 503, Status: "503"}),
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Retryable(tt.err); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClassifier_StructuredSignalsBeforeFallback(t *testing.T) {
	c := NewClassifier(nil, nil)

	// 403 is not retryable even though the message mentions "connection":
	// the structured status code wins over the textual fallback.
	err := &UpstreamStatusError{StatusCode: 403, Status: "403 connection rejected by policy"}
	if c.Retryable(err) {
		t.Error("expected status code to take precedence over message fallback")
	}

	// An unknown transport code with a timeout-looking message is also not
	// retried: a non-empty code is an explicit structured signal.
	terr := &TransportError{Code: "EACCES", Err: errors.New("timeout while opening socket")}
	if c.Retryable(terr) {
		t.Error("expected transport code to take precedence over message fallback")
	}
}

func TestClassifier_CustomSets(t *testing.T) {
	c := NewClassifier([]int{418}, []string{"EPIPE"})

	if !c.Retryable(&UpstreamStatusError{StatusCode: 418, Status: "418"}) {
		t.Error("expected custom status code to be retryable")
	}
	if c.Retryable(&UpstreamStatusError{StatusCode: 503, Status: "503"}) {
		t.Error("expected default status codes to be replaced by custom set")
	}
	if !c.Retryable(&TransportError{Code: "epipe", Err: errors.New("broken pipe")}) {
		t.Error("expected transport code match to be case-insensitive")
	}
}

func TestDownstreamError_Unwrap(t *testing.T) {
	inner := &UpstreamStatusError{StatusCode: 503, Status: "503"}
	err := &DownstreamError{Destination: "cms-service", Attempts: 3, Err: inner}

	var statusErr *UpstreamStatusError
	if !errors.As(err, &statusErr) {
		t.Fatal("expected DownstreamError to unwrap to UpstreamStatusError")
	}
	if statusErr.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", statusErr.StatusCode)
	}
}

func TestCircuitOpenError_Error(t *testing.T) {
	err := &CircuitOpenError{Destination: "media-service", State: "open"}
	want := "circuit open for media-service (state=open)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
