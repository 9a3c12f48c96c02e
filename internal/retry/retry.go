// Package retry provides an explicit retry policy and a generic
// combinator for fallible operations. Policies are plain values so
// backoff behavior is testable without timers wired into call sites.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded exponential backoff schedule.
// delay(attempt) = min(BaseDelay * 2^attempt, MaxDelay), then widened by
// ±JitterFraction.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// Delay returns the pre-jitter backoff for a zero-based attempt index.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) jittered(delay time.Duration) time.Duration {
	if p.JitterFraction <= 0 || delay <= 0 {
		return delay
	}

	span := float64(delay) * p.JitterFraction
	offset := (rand.Float64()*2 - 1) * span
	jittered := time.Duration(float64(delay) + offset)
	if jittered < 0 {
		return 0
	}
	return jittered
}

// Do runs op up to 1+MaxRetries times, sleeping the jittered backoff
// between attempts. It stops early when retryable reports false for the
// returned error or when ctx is cancelled, returning the last error.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.jittered(policy.Delay(attempt - 1))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
