package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests within a run
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter spaces requests evenly so that at most requestsPerMinute go out
// per minute. Zero or less disables pacing.
func NewLimiter(requestsPerMinute int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
