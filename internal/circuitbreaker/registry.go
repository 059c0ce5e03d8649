package circuitbreaker

import (
	"log/slog"
	"sync"
)

// Registry is the single process-wide collection of named breakers.
// Entries are created on first lookup and live until the process exits;
// Reset returns a breaker to CLOSED but never removes it.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

// GetOrCreate returns the breaker registered under name, creating it
// with cfg and opts on first lookup. Repeated calls return the
// first-created instance; a differing cfg for an existing name is
// ignored and logged at Warn rather than silently accepted.
func (r *Registry) GetOrCreate(name string, cfg Config, opts ...Option) (*CircuitBreaker, error) {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		r.warnOnMismatch(cb, cfg)
		return cb, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		r.warnOnMismatch(cb, cfg)
		return cb, nil
	}

	opts = append([]Option{WithLogger(r.logger)}, opts...)

	cb, err := NewCircuitBreaker(name, cfg, opts...)
	if err != nil {
		return nil, err
	}

	r.breakers[name] = cb
	return cb, nil
}

func (r *Registry) warnOnMismatch(cb *CircuitBreaker, cfg Config) {
	if cb.config != cfg {
		r.logger.Warn("Ignoring differing configuration for existing circuit breaker",
			slog.String("breaker", cb.name))
	}
}

// Lookup returns the breaker registered under name without creating it.
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, exists := r.breakers[name]
	return cb, exists
}

// Reset resets the named breaker to CLOSED with zeroed metrics.
// It reports whether the breaker existed.
func (r *Registry) Reset(name string) bool {
	cb, exists := r.Lookup(name)
	if !exists {
		return false
	}

	cb.Reset()
	return true
}

// ResetAll resets every registered breaker. Entries are kept.
func (r *Registry) ResetAll() {
	r.mutex.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mutex.RUnlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}

// Names returns the registered breaker names in no particular order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// Snapshot returns the status of every registered breaker, keyed by
// name. A pure read for operational inspection.
func (r *Registry) Snapshot() map[string]Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make(map[string]Status, len(r.breakers))
	for name, cb := range r.breakers {
		snapshot[name] = cb.Status()
	}
	return snapshot
}
