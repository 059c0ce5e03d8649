// Package circuitbreaker implements the circuit breaker pattern for
// protecting callers from failing downstream dependencies.
//
// A circuit breaker tracks recent call outcomes and temporarily blocks
// calls once a failure pattern is detected, then cautiously probes for
// recovery. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Dependency failing, calls rejected until the recovery timeout
//   - HALF-OPEN: A limited number of probe calls test for recovery
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(logger)
//	cb, err := registry.GetOrCreate("cache", circuitbreaker.DefaultConfig())
//	if err != nil {
//	    // invalid configuration
//	}
//
//	err = cb.Do(ctx, func(ctx context.Context) error {
//	    return cache.Ping(ctx)
//	})
//	if circuitbreaker.IsOpen(err) {
//	    // rejected without calling the dependency
//	}
//
// The protected operation always runs outside the breaker's internal
// lock, so a slow dependency never blocks other callers.
package circuitbreaker
