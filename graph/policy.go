package graph

import (
	"errors"
	"math/rand"
	"time"
)

// ErrInvalidRetryPolicy indicates a RetryPolicy with impossible settings.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// RetryPolicy defines automatic retry behavior for transient node
// failures: provider rate limits, network hiccups, busy render backends.
//
// Between attempts the engine sleeps with exponential backoff plus jitter
// so concurrent nodes don't retry in lockstep.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Must be >= 1; 1 means no retries.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff:
	// delay = min(BaseDelay * 2^attempt, MaxDelay) + jitter(0, BaseDelay).
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth retrying. When nil,
	// every error is retried until MaxAttempts is reached.
	Retryable func(error) bool
}

// Validate checks the policy's constraints.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// shouldRetry reports whether err warrants another attempt.
func (rp *RetryPolicy) shouldRetry(err error, attempt int) bool {
	if attempt >= rp.MaxAttempts {
		return false
	}
	if rp.Retryable != nil && !rp.Retryable(err) {
		return false
	}
	return true
}

// computeBackoff returns the delay before retry number attempt
// (zero-based), using exponential backoff capped at maxDelay plus jitter
// in [0, base).
func computeBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	// jitter for retry timing, not security
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404
	return delay + jitter
}
