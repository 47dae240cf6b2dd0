package utils

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the politeness policy between outbound requests. Every Wait
// pauses for base plus a random extra of up to jitter, so the interval is
// never fixed. The underlying limiter is shared: when several goroutines use
// one Pacer, no two of them are released less than base apart.
type Pacer struct {
	base    time.Duration
	jitter  time.Duration
	limiter *rate.Limiter
}

// NewPacer creates a Pacer. A zero base and zero jitter make Wait a no-op.
func NewPacer(base, jitter time.Duration) *Pacer {
	limit := rate.Inf
	if base > 0 {
		limit = rate.Every(base)
	}
	return &Pacer{
		base:    base,
		jitter:  jitter,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the caller may issue its next request.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := SleepContext(ctx, RandomDelay(p.base, p.jitter)); err != nil {
		return err
	}
	return p.limiter.Wait(ctx)
}

// RandomDelay returns base plus a uniformly random duration in [0, jitter).
func RandomDelay(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(jitter)))
}
