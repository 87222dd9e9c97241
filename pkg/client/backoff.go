package client

import (
	"math/rand"
	"time"
)

// Backoff returns the wait before retry number attempt, counting from 0.
type Backoff func(attempt int) time.Duration

// ExponentialBackoff doubles the wait d from base up to ceiling and returns a
// value drawn from [d/2, d].
func ExponentialBackoff(base, ceiling time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 0; i < attempt && d < ceiling; i++ {
			d *= 2
		}
		if d > ceiling {
			d = ceiling
		}
		if half := d / 2; half > 0 {
			d = half + time.Duration(rand.Int63n(int64(half)+1))
		}
		return d
	}
}

// ConstantBackoff waits d before every retry.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// DefaultBackoff starts at 100ms and doubles up to 2s.
func DefaultBackoff() Backoff {
	return ExponentialBackoff(100*time.Millisecond, 2*time.Second)
}
