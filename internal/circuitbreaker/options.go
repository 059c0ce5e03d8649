package circuitbreaker

import "log/slog"

// Option customizes a CircuitBreaker beyond its Config.
type Option func(*CircuitBreaker)

// WithLogger sets the structured logger receiving breaker events.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cb *CircuitBreaker) {
		cb.logger = logger
	}
}

// WithClock sets the time source. Useful for tests.
func WithClock(clock Clock) Option {
	return func(cb *CircuitBreaker) {
		cb.clock = clock
	}
}

// WithExcluded sets the classifier for errors that must propagate
// without counting as breaker failures.
func WithExcluded(classifier Classifier) Option {
	return func(cb *CircuitBreaker) {
		cb.excluded = classifier
	}
}
