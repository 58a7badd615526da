// Package resilience provides reliability and fault tolerance patterns for
// outbound calls to downstream services. It composes circuit breaking, retry
// logic with exponential backoff and jitter, and per-attempt timeout guards
// into a single resilient-call primitive.
//
// The package supports:
//   - Per-destination circuit breakers with a sliding failure window
//   - Retry logic gated by a failure classifier
//   - Per-attempt timeout guards independent of the overall retry budget
//
// Usage Example:
//
//	client, err := resilience.NewClient(resilience.DefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	result, err := client.Execute(ctx, "posts", func(ctx context.Context) (any, error) {
//	    return caller.Do(ctx, http.MethodGet, "/posts/42", nil, nil)
//	})
package resilience
