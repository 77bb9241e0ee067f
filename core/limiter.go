package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLimitExceeded is returned once a DecisionLimiter runs out of budget.
var ErrLimitExceeded = errors.New("decision limit exceeded")

// DecisionLimiter enforces a maximum number of model backed decisions per run.
type DecisionLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewDecisionLimiter creates a new limiter. If max == 0, unlimited decisions are allowed.
func NewDecisionLimiter(max int) *DecisionLimiter {
	return &DecisionLimiter{max: max}
}

// Increment increases the counter and returns an error if the limit is exceeded.
func (l *DecisionLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: max %d", ErrLimitExceeded, l.max)
	}

	return nil
}

// Count returns the number of decisions made so far.
func (l *DecisionLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many decisions are left, or -1 when unlimited.
func (l *DecisionLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}

	return max(0, l.max-l.count)
}

// Reset clears the counter, typically at the start of a new run.
func (l *DecisionLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count = 0
}
