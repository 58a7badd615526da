package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"content-gateway/internal/downstream"
	"content-gateway/internal/resilience"
)

// recordingExecutor runs operations directly and records which
// destinations were probed.
type recordingExecutor struct {
	mu           sync.Mutex
	destinations []string
}

func (r *recordingExecutor) Execute(ctx context.Context, destination string, op resilience.Operation) (any, error) {
	r.mu.Lock()
	r.destinations = append(r.destinations, destination)
	r.mu.Unlock()
	return op(ctx)
}

func (r *recordingExecutor) probed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.destinations...)
}

func TestNew_Validation(t *testing.T) {
	exec := &recordingExecutor{}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Schedule: "* * * * *", RatePerSecond: 2, Burst: 5}, false},
		{"missing schedule", Config{RatePerSecond: 2, Burst: 5}, true},
		{"zero rate", Config{Schedule: "* * * * *", Burst: 5}, true},
		{"negative rate", Config{Schedule: "* * * * *", RatePerSecond: -1}, true},
		{"zero burst defaults", Config{Schedule: "* * * * *", RatePerSecond: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(exec, nil, tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunOnce_ProbesEveryDestination(t *testing.T) {
	var mu sync.Mutex
	paths := make(map[string]bool)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path] = true
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	exec := &recordingExecutor{}
	targets := map[string]Target{
		"posts": {Caller: downstream.NewCaller("posts", ts.URL), HealthPath: "/healthz"},
		"media": {Caller: downstream.NewCaller("media", ts.URL), HealthPath: "/internal/health"},
	}

	p, err := New(exec, targets, Config{Schedule: "* * * * *", RatePerSecond: 100, Burst: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.RunOnce(context.Background())

	probed := exec.probed()
	if len(probed) != 2 {
		t.Fatalf("expected 2 probes, got %d: %v", len(probed), probed)
	}
	if !paths["/healthz"] || !paths["/internal/health"] {
		t.Errorf("expected both health paths to be hit, got %v", paths)
	}
}

func TestRunOnce_FailingProbeDoesNotAbortOthers(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	exec := &recordingExecutor{}
	targets := map[string]Target{
		"posts": {Caller: downstream.NewCaller("posts", healthy.URL), HealthPath: "/healthz"},
		"media": {Caller: downstream.NewCaller("media", broken.URL), HealthPath: "/healthz"},
	}

	p, err := New(exec, targets, Config{Schedule: "* * * * *", RatePerSecond: 100, Burst: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.RunOnce(context.Background())

	if got := len(exec.probed()); got != 2 {
		t.Errorf("expected both destinations probed despite a failure, got %d", got)
	}
}

func TestRunOnce_CanceledContextSkipsProbes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &recordingExecutor{}
	targets := map[string]Target{
		"posts": {Caller: downstream.NewCaller("posts", "http://127.0.0.1:0"), HealthPath: "/healthz"},
	}

	// Zero-burst tokens force the limiter to wait, which fails on a
	// canceled context before any probe is issued.
	p, err := New(exec, targets, Config{Schedule: "* * * * *", RatePerSecond: 0.001, Burst: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Drain the initial burst token.
	_ = p.limiter.Wait(context.Background())

	p.RunOnce(ctx)

	if got := len(exec.probed()); got != 0 {
		t.Errorf("expected no probes on canceled context, got %d", got)
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	exec := &recordingExecutor{}
	p, err := New(exec, nil, Config{Schedule: "not a cron expr", RatePerSecond: 1, Burst: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Stop()

	if err := p.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}
