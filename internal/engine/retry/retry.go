package retry

import (
	"context"
	"math"
	"time"

	"github.com/gloamlab/gloam/internal/common/config"
)

// Policy defines how failed attempts are retried.
type Policy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultPolicy is used when no retry configuration is supplied.
var DefaultPolicy = Policy{
	MaxRetries:    3,
	BaseDelay:     10 * time.Millisecond,
	MaxDelay:      250 * time.Millisecond,
	BackoffFactor: 2.0,
}

// FromConfig builds a policy from the configured retry schedule, filling
// gaps from DefaultPolicy.
func FromConfig(cfg config.RetryConfig) Policy {
	p := Policy{
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.BackoffFactor,
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultPolicy.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy.MaxDelay
	}
	if p.BackoffFactor <= 1 {
		p.BackoffFactor = DefaultPolicy.BackoffFactor
	}
	return p
}

// Delay returns the backoff delay before the given retry. Attempts are
// 1-based: Delay(1) is the pause before the first retry.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay
}

// Sleep blocks for the backoff delay before the given retry, returning
// early with the context error when the caller is cancelled.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn up to 1+MaxRetries times, pausing per the delay schedule
// between attempts. It returns nil on the first success, the context
// error when cancelled between attempts, and otherwise the error from
// the final attempt. retryable decides whether an error is worth another
// attempt; a nil retryable retries every error.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt >= p.MaxRetries {
			return lastErr
		}

		if err := p.Sleep(ctx, attempt+1); err != nil {
			return err
		}
	}
}
