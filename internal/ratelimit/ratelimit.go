// Package ratelimit provides the single-slot pacing used by provider
// clients. Each client owns one Limiter sized to the provider's published
// budget; concurrent callers serialize through Wait so the process as a
// whole never exceeds one request per interval.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to at most one per interval.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing one call per interval. A zero or negative
// interval returns a limiter that never blocks.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a slot is available right now without blocking.
func (l *Limiter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}
