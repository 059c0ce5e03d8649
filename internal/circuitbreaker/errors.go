package circuitbreaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrOpen is the sentinel matched by every rejection the breaker emits.
var ErrOpen = errors.New("circuit breaker open")

// Rejection reasons carried by OpenError.
const (
	ReasonOpen           = "circuit open"
	ReasonHalfOpenBudget = "half-open call budget exceeded"
)

// OpenError reports a rejected call. RetryAfter estimates the remaining
// recovery timeout and is zero for half-open budget rejections.
type OpenError struct {
	Name       string
	Reason     string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	if e.Reason == ReasonHalfOpenBudget {
		return fmt.Sprintf("circuit breaker %q: %s", e.Name, ReasonHalfOpenBudget)
	}
	return fmt.Sprintf("circuit breaker %q: circuit open, retry after %s", e.Name, e.RetryAfter.Round(time.Millisecond))
}

// Is lets errors.Is(err, ErrOpen) match both rejection reasons.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// IsOpen reports whether err is a breaker rejection.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}
