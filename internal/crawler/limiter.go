package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a fixed pause between consecutive fetch attempts.
// There is no burst allowance and no adaptive backoff: the configured
// delay is the minimum wall-clock spacing between requests.
//
// Design decision: We wrap golang.org/x/time/rate rather than sleeping
// directly because rate.Limiter integrates with context cancellation,
// so an interrupted run does not hang inside a politeness pause.
type Limiter struct {
	// rl is nil when the delay is non-positive, making Wait a no-op.
	rl *rate.Limiter
}

// NewLimiter creates a Limiter with the given inter-request delay.
// A non-positive delay disables waiting entirely.
func NewLimiter(delay time.Duration) *Limiter {
	if delay <= 0 {
		return &Limiter{}
	}
	// Burst of 1: the first call proceeds immediately, every later call
	// waits out the full delay since the previous one.
	return &Limiter{rl: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the configured delay since the previous permitted
// request has elapsed, or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.rl == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
