package worker

import (
	"math"
	"math/rand"
	"time"
)

// Defaults tuned for email delivery: a few attempts spread over well under
// a minute, so a stuck provider cannot back the queue up for long.
const (
	defaultMaxRetries    = 3
	defaultInitialDelay  = 2 * time.Second
	defaultMaxDelay      = 30 * time.Second
	defaultBackoffFactor = 2.0
	defaultJitter        = 0.2
)

// RetryPolicy defines exponential backoff with jitter.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // fraction of the delay spread around it, (0..1]
}

// withDefaults fills unset fields; callers usually set MaxRetries only.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultMaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultInitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultMaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = defaultBackoffFactor
	}
	if r.Jitter <= 0 || r.Jitter > 1 {
		r.Jitter = defaultJitter
	}
	return r
}

// NextDelay returns the delay for a 1-based attempt: exponential growth
// clamped to MaxDelay, spread by the jitter fraction so retries from
// parallel deliveries do not align.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	if maxDelay := float64(r.MaxDelay); delay > maxDelay {
		delay = maxDelay
	}

	spread := delay * r.Jitter
	delay = delay - spread/2 + rand.Float64()*spread

	if delay <= 0 {
		return time.Second
	}
	return time.Duration(delay)
}
