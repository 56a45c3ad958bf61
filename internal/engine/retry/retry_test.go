package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{
		MaxRetries:    5,
		BaseDelay:     10 * time.Millisecond,
		MaxDelay:      250 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 10*time.Millisecond, p.Delay(1))
	assert.Equal(t, 20*time.Millisecond, p.Delay(2))
	assert.Equal(t, 40*time.Millisecond, p.Delay(3))
	assert.Equal(t, 160*time.Millisecond, p.Delay(5))
	// 10ms * 2^5 exceeds the cap.
	assert.Equal(t, 250*time.Millisecond, p.Delay(6))
	// Attempts below 1 are clamped.
	assert.Equal(t, 10*time.Millisecond, p.Delay(0))
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{})
	assert.Equal(t, DefaultPolicy, p)

	p = FromConfig(config.RetryConfig{
		MaxRetries:    7,
		BaseDelay:     time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 3.0,
	})
	assert.Equal(t, 7, p.MaxRetries)
	assert.Equal(t, time.Millisecond, p.BaseDelay)
	assert.Equal(t, time.Second, p.MaxDelay)
	assert.Equal(t, 3.0, p.BackoffFactor)

	// A factor at or below 1 would stop the delay from growing.
	p = FromConfig(config.RetryConfig{MaxRetries: 2, BackoffFactor: 1.0})
	assert.Equal(t, DefaultPolicy.BackoffFactor, p.BackoffFactor)
}

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:    maxRetries,
		BaseDelay:     time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), fastPolicy(2), nil, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(err error) bool {
		return !errors.Is(err, fatal)
	}, func(context.Context) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(3), nil, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{
		MaxRetries:    3,
		BaseDelay:     time.Hour,
		MaxDelay:      time.Hour,
		BackoffFactor: 2.0,
	}
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, nil, func(context.Context) error {
			return errors.New("transient")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
