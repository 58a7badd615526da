package breaker

import "sync"

// Registry lazily creates and looks up one Breaker per destination key.
//
// It is safe for concurrent use: at most one Breaker is ever created per
// key, even when many callers race on the first access. Breakers live for
// the lifetime of the process; there is no eviction and no cross-process
// sharing.
type Registry struct {
	configFor func(destination string) Config

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry. configFor resolves the breaker config for
// a destination key on first access; a nil configFor uses defaults for
// every destination.
func NewRegistry(configFor func(destination string) Config) *Registry {
	if configFor == nil {
		configFor = func(string) Config { return Config{} }
	}
	return &Registry{
		configFor: configFor,
		breakers:  make(map[string]*Breaker),
	}
}

// GetOrCreate returns the breaker for the given destination key, creating
// it on first access.
func (r *Registry) GetOrCreate(destination string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[destination]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have created
	// the breaker while we were waiting.
	if b, ok := r.breakers[destination]; ok {
		return b
	}
	b = New(destination, r.configFor(destination))
	r.breakers[destination] = b
	return b
}

// CanExecute reports whether a call to the destination may be attempted.
func (r *Registry) CanExecute(destination string) bool {
	return r.GetOrCreate(destination).CanExecute()
}

// RecordSuccess records a successful call outcome for the destination.
func (r *Registry) RecordSuccess(destination string) {
	r.GetOrCreate(destination).RecordSuccess()
}

// RecordFailure records a failed call outcome for the destination.
func (r *Registry) RecordFailure(destination string) {
	r.GetOrCreate(destination).RecordFailure()
}

// State returns the current circuit state for the destination.
func (r *Registry) State(destination string) State {
	return r.GetOrCreate(destination).State()
}

// Snapshot returns the stats of every known breaker, keyed by destination.
func (r *Registry) Snapshot() map[string]Stats {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	out := make(map[string]Stats, len(breakers))
	for _, b := range breakers {
		s := b.Stats()
		out[s.Destination] = s
	}
	return out
}
