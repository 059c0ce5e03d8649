package circuitbreaker

import "context"

// Run executes fn through cb and returns its value. Convenience wrapper
// for protected operations that produce a result.
func Run[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Do(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// RunWithFallback executes fn through cb, substituting fallback's value
// when the circuit is open.
func RunWithFallback[T any](ctx context.Context, cb *CircuitBreaker, fn, fallback func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.DoWithFallback(ctx,
		func(ctx context.Context) error {
			var fnErr error
			result, fnErr = fn(ctx)
			return fnErr
		},
		func(ctx context.Context) error {
			var fbErr error
			result, fbErr = fallback(ctx)
			return fbErr
		})
	return result, err
}
