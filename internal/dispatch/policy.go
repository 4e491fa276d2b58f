package dispatch

import (
	"time"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

// Policy decides whether a failed attempt retries and after how long.
// NextAction is pure: no clock, no randomness.
type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Action is the policy verdict for one failed attempt.
type Action struct {
	Retry bool
	Delay time.Duration
}

// NextAction returns the verdict for the given attempt number (1-based) and
// failure category. Non-retryable categories and exhausted budgets both stop
// the sequence.
func (p Policy) NextAction(attemptNumber int, category enums.ErrorCategory) Action {
	if !category.Retryable() {
		return Action{Retry: false}
	}
	if attemptNumber >= p.MaxRetries {
		return Action{Retry: false}
	}
	return Action{Retry: true, Delay: p.backoff(attemptNumber)}
}

func (p Policy) backoff(attemptNumber int) time.Duration {
	delay := p.BackoffBase
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if p.BackoffCap > 0 && delay > p.BackoffCap {
		return p.BackoffCap
	}
	return delay
}
