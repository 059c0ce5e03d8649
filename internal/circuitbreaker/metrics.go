package circuitbreaker

import "time"

// Metrics tallies call outcomes and state transitions for one breaker.
// The owning CircuitBreaker serializes all updates under its mutex;
// rejected calls never reach the protected operation, so
// SuccessfulCalls + FailedCalls + RejectedCalls <= TotalCalls holds at
// every observation point.
type Metrics struct {
	TotalCalls      int64 `json:"total_calls"`
	SuccessfulCalls int64 `json:"successful_calls"`
	FailedCalls     int64 `json:"failed_calls"`
	RejectedCalls   int64 `json:"rejected_calls"`
	StateChanges    int64 `json:"state_changes"`

	ConsecutiveFailures  int `json:"consecutive_failures"`
	ConsecutiveSuccesses int `json:"consecutive_successes"`

	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime *time.Time `json:"last_success_time,omitempty"`
}

// SuccessRate returns successful calls as a percentage of total calls,
// or zero before any call was attempted.
func (m Metrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0
	}
	return float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100
}

// Status is the operational snapshot of one breaker, consumed by the
// monitoring layer. OpenFor is nil unless the breaker is OPEN.
type Status struct {
	Name        string         `json:"name"`
	State       string         `json:"state"`
	OpenFor     *time.Duration `json:"open_for,omitempty"`
	SuccessRate float64        `json:"success_rate"`
	Metrics     Metrics        `json:"metrics"`
	Config      Config         `json:"config"`
}
