// Package lockout decides whether a login attempt may proceed based on the
// recent attempt history for an email. It only reads the ledger; all writes
// (lock records, account status) stay with the caller.
package lockout

import (
	"context"
	"time"
)

// AttemptSource is the read-only view of the attempt ledger the evaluator
// needs. The postgres repository satisfies it.
type AttemptSource interface {
	ActiveLockout(ctx context.Context, email string, now time.Time) (*time.Time, error)
	CountFailuresSince(ctx context.Context, email string, since time.Time) (int, error)
}

type Decision struct {
	Allowed bool
	// RetryAfter is how long until an active lockout clears. Zero when Allowed.
	RetryAfter time.Duration
	// FailuresInWindow is the failed-attempt count inside the lockout window
	// at evaluation time, before the current attempt is recorded.
	FailuresInWindow int
}

type Evaluator struct {
	MaxAttempts     int
	LockoutWindow   time.Duration
	LockoutDuration time.Duration
}

func NewEvaluator(maxAttempts int, lockoutWindow, lockoutDuration time.Duration) *Evaluator {
	return &Evaluator{
		MaxAttempts:     maxAttempts,
		LockoutWindow:   lockoutWindow,
		LockoutDuration: lockoutDuration,
	}
}

// Evaluate returns the allow/deny decision for a new login attempt.
func (e *Evaluator) Evaluate(ctx context.Context, src AttemptSource, email string, now time.Time) (Decision, error) {
	until, err := src.ActiveLockout(ctx, email, now)
	if err != nil {
		return Decision{}, err
	}
	if until != nil {
		return Decision{Allowed: false, RetryAfter: until.Sub(now)}, nil
	}

	failures, err := src.CountFailuresSince(ctx, email, now.Add(-e.LockoutWindow))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, FailuresInWindow: failures}, nil
}

// ShouldLock reports whether failures (counted after the current attempt was
// recorded) has reached the lockout threshold.
func (e *Evaluator) ShouldLock(failures int) bool {
	return failures >= e.MaxAttempts
}

// AttemptsRemaining is how many more failures the email can absorb before it
// locks, given the failure count after the current attempt was recorded.
func (e *Evaluator) AttemptsRemaining(failures int) int {
	remaining := e.MaxAttempts - failures
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Evaluator) LockoutUntil(now time.Time) time.Time {
	return now.Add(e.LockoutDuration)
}
