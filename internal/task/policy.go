package task

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy decides how often and how late a failed task is retried.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Jitter     bool
}

// DefaultRetryPolicy retries five times after 1s, 2s, 4s, 8s and 16s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		Backoff:    time.Second,
		MaxBackoff: 10 * time.Minute,
	}
}

// Countdown returns the delay before retry number retries+1.
func (p RetryPolicy) Countdown(retries int) time.Duration {
	backoff := p.Backoff
	for i := 0; i < retries; i++ {
		backoff *= 2
		if p.MaxBackoff > 0 && backoff >= p.MaxBackoff {
			break
		}
	}
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	if p.Jitter && backoff > 0 {
		backoff = time.Duration(rand.Int64N(int64(backoff) + 1))
	}
	return backoff
}
