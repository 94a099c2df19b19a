package triage

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RatePacer lets one issue through per delay. The first Wait returns at once.
type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(delay time.Duration) *RatePacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
