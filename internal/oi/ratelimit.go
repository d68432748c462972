// Package oi fetches option chains around the ATM strike on a schedule,
// rate-limited and gated by market hours, and records open interest
// snapshots for day-over-day deltas.
package oi

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is the shared fetch budget across all
// subscriptions when the config does not override it.
const DefaultRequestsPerSecond = 8.0

// Limiter paces quote requests so back-to-back dispatches observe an
// inter-arrival of at least 1/rps. Burst is pinned to one token: the
// vendor budget is a hard ceiling, not an average.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing rps requests per second.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until the next request may be dispatched or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
