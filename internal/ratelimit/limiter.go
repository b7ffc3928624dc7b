// Package ratelimit throttles outgoing NAS requests with a token bucket.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/notanas/notanas-cli/internal/constants"
)

// Limiter gates requests to the NAS server. A nil *Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows requestsPerSecond on average with bursts up to burst.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// NewDefaultLimiter uses the standard client budget.
func NewDefaultLimiter() *Limiter {
	return NewLimiter(constants.DefaultRequestsPerSecond, constants.DefaultRequestBurst)
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
