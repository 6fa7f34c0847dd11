// Package ratelimit throttles calls to upstream AI providers.
package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by all calls of one adapter.
// A nil Limiter never blocks.
type Limiter struct {
	bucket *rate.Limiter
}

// New returns a limiter allowing rps requests per second with bursts of
// up to burst requests. A non-positive rps disables limiting and returns nil.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int(math.Ceil(rps)))
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.bucket.Wait(ctx)
}

// Limit returns the configured rate, or 0 when unlimited.
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.bucket.Limit())
}
