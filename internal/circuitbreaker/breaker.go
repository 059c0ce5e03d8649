package circuitbreaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Clock abstracts time so state transitions can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Classifier reports whether an error should bypass failure accounting.
// Excluded errors propagate to the caller but never trip the circuit,
// so caller mistakes (bad input) can be told apart from an unhealthy
// dependency.
type Classifier func(error) bool

// Config holds the immutable tuning parameters of one circuit breaker.
type Config struct {
	FailureThreshold int           `json:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
}

// DefaultConfig returns the documented default tuning.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// Validate rejects thresholds that would make the breaker inert.
// Construction fails fast; invalid values never reach call time.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.RecoveryTimeout, validation.Required, validation.By(validatePositiveTimeout)),
		validation.Field(&c.HalfOpenMaxCalls, validation.Required, validation.Min(1)),
	)
}

func validatePositiveTimeout(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_timeout", "recovery timeout must be positive")
	}

	return nil
}

// CircuitBreaker is a three-state gate protecting one downstream
// dependency. Safe for concurrent use; the protected operation always
// runs outside the internal lock.
type CircuitBreaker struct {
	name   string
	config Config

	mutex         sync.Mutex
	state         State
	openedAt      time.Time
	halfOpenCalls int
	metrics       Metrics

	excluded Classifier
	clock    Clock
	logger   *slog.Logger
}

// NewCircuitBreaker creates a breaker in the CLOSED state.
// The configuration is validated before any state is allocated.
func NewCircuitBreaker(name string, cfg Config, opts ...Option) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cb := &CircuitBreaker{
		name:   name,
		config: cfg,
		state:  StateClosed,
		clock:  systemClock{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cb)
	}

	cb.logger.Info("Circuit breaker created",
		slog.String("breaker", name),
		slog.Int("failure_threshold", cfg.FailureThreshold),
		slog.Int("success_threshold", cfg.SuccessThreshold),
		slog.Duration("recovery_timeout", cfg.RecoveryTimeout),
		slog.Int("half_open_max_calls", cfg.HalfOpenMaxCalls))

	return cb, nil
}

// Do executes fn under breaker protection. If the circuit is open the
// call is rejected with an *OpenError and fn is never invoked.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	return cb.call(ctx, fn, nil)
}

// DoWithFallback behaves like Do, except an OPEN-state rejection runs
// fallback instead of returning an error. A HALF-OPEN budget rejection
// never runs the fallback: a probe slot was contended, not the circuit
// tripped.
func (cb *CircuitBreaker) DoWithFallback(ctx context.Context, fn, fallback func(context.Context) error) error {
	return cb.call(ctx, fn, fallback)
}

// Wrap binds this breaker to fn, returning a closure with Do semantics.
func (cb *CircuitBreaker) Wrap(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return cb.Do(ctx, fn)
	}
}

// WrapWithFallback binds this breaker and a fallback to fn.
func (cb *CircuitBreaker) WrapWithFallback(fn, fallback func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return cb.DoWithFallback(ctx, fn, fallback)
	}
}

func (cb *CircuitBreaker) call(ctx context.Context, fn, fallback func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		if openErr, ok := err.(*OpenError); ok && openErr.Reason == ReasonOpen && fallback != nil {
			cb.logger.Info("Invoking fallback",
				slog.String("breaker", cb.name))
			return fallback(ctx)
		}
		return err
	}

	// The protected call runs without the lock so a slow dependency
	// never blocks other callers' admission decisions.
	err := fn(ctx)

	cb.record(err)
	return err
}

// allow is the admission decision: a single short critical section that
// may first move OPEN to HALF-OPEN when the recovery timeout elapsed.
func (cb *CircuitBreaker) allow() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen && cb.clock.Now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		cb.metrics.TotalCalls++
		cb.metrics.RejectedCalls++
		return &OpenError{
			Name:       cb.name,
			Reason:     ReasonOpen,
			RetryAfter: cb.config.RecoveryTimeout - cb.clock.Now().Sub(cb.openedAt),
		}

	case StateHalfOpen:
		cb.halfOpenCalls++
		if cb.halfOpenCalls > cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls--
			cb.metrics.TotalCalls++
			cb.metrics.RejectedCalls++
			return &OpenError{Name: cb.name, Reason: ReasonHalfOpenBudget}
		}
	}

	cb.metrics.TotalCalls++
	return nil
}

// record books the outcome of an admitted call. Excluded errors
// propagate without touching counters or state.
func (cb *CircuitBreaker) record(err error) {
	if err == nil {
		cb.recordSuccess()
		return
	}

	if cb.excluded != nil && cb.excluded(err) {
		return
	}

	cb.recordFailure(err)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := cb.clock.Now()
	cb.metrics.SuccessfulCalls++
	cb.metrics.ConsecutiveSuccesses++
	cb.metrics.ConsecutiveFailures = 0
	cb.metrics.LastSuccessTime = &now

	if cb.state == StateHalfOpen && cb.metrics.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := cb.clock.Now()
	cb.metrics.FailedCalls++
	cb.metrics.ConsecutiveFailures++
	cb.metrics.ConsecutiveSuccesses = 0
	cb.metrics.LastFailureTime = &now

	cb.logger.Warn("Circuit breaker recorded failure",
		slog.String("breaker", cb.name),
		slog.String("error", err.Error()),
		slog.Int("consecutive_failures", cb.metrics.ConsecutiveFailures))

	switch {
	case cb.state == StateHalfOpen:
		// A single failed probe undoes the recovery attempt.
		cb.setState(StateOpen)
	case cb.state == StateClosed && cb.metrics.ConsecutiveFailures >= cb.config.FailureThreshold:
		cb.setState(StateOpen)
	}
}

// setState performs a transition. Same-state requests are no-ops: no
// counter bump, no event. Callers must hold the mutex.
func (cb *CircuitBreaker) setState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.metrics.StateChanges++

	switch to {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
		cb.halfOpenCalls = 0
	case StateHalfOpen:
		cb.halfOpenCalls = 0
		// Counting starts fresh: successes recorded before the trip
		// must not count toward closing.
		cb.metrics.ConsecutiveSuccesses = 0
	case StateClosed:
		cb.openedAt = time.Time{}
		cb.metrics.ConsecutiveFailures = 0
	}

	cb.logger.Info("Circuit breaker state changed",
		slog.String("breaker", cb.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

// Reset returns the breaker to CLOSED with zeroed metrics, whatever its
// prior state.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	from := cb.state
	cb.state = StateClosed
	cb.openedAt = time.Time{}
	cb.halfOpenCalls = 0
	cb.metrics = Metrics{}

	cb.logger.Info("Circuit breaker reset",
		slog.String("breaker", cb.name),
		slog.String("from", from.String()))
}

// Name returns the breaker's registry key.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Config returns the active configuration.
func (cb *CircuitBreaker) Config() Config {
	return cb.config
}

// State returns the current state, applying the OPEN timeout check so a
// read after the recovery window reports HALF-OPEN.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen && cb.clock.Now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
		cb.setState(StateHalfOpen)
	}

	return cb.state
}

// Metrics returns a copy of the current counters.
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.metrics
}

// Status builds the full operational snapshot. It never invokes the
// protected operation.
func (cb *CircuitBreaker) Status() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	var openFor *time.Duration
	if cb.state == StateOpen {
		d := cb.clock.Now().Sub(cb.openedAt)
		openFor = &d
	}

	return Status{
		Name:        cb.name,
		State:       cb.state.String(),
		OpenFor:     openFor,
		SuccessRate: cb.metrics.SuccessRate(),
		Metrics:     cb.metrics,
		Config:      cb.config,
	}
}
