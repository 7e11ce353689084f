// Package retry holds the single backoff policy used for outbound calls.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Policy retries a call with exponential backoff. Delays double from
// BaseDelay and are capped at MaxDelay when set. A nil Retryable retries
// every error.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
	// OnRetry is invoked before sleeping ahead of another attempt.
	OnRetry func(attempt int, err error)
}

// Default returns the policy used by the carrier gateway: three attempts,
// 2s then 4s between them.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// WithRetryable returns a copy of p using pred as its predicate.
func (p Policy) WithRetryable(pred func(error) bool) Policy {
	p.Retryable = pred
	return p
}

// Attempts returns the effective attempt budget.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts the
// attempt budget or ctx is done. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts()
	attempt := 0
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt < attempts && p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		return goretry.RetryableError(err)
	})
}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Nanosecond
	}
	b := goretry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	return goretry.WithMaxRetries(uint64(p.Attempts()-1), b)
}
