// internal/common/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces a fixed-window request quota per identifier, backed by
// Redis so the window holds across replicas. The first request of a window
// creates the counter with an expiry; subsequent requests increment it.
type Limiter struct {
	client *redis.Client
	log    logger.Logger
	window time.Duration
	max    int64
}

// Result describes the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetIn   time.Duration
}

// NewLimiter creates a Redis-backed fixed-window limiter.
func NewLimiter(client *redis.Client, log logger.Logger, cfg config.RateLimitConfig) *Limiter {
	window := time.Duration(cfg.WindowMs) * time.Millisecond
	if window <= 0 {
		window = time.Minute
	}
	max := int64(cfg.MaxRequests)
	if max <= 0 {
		max = 10
	}
	return &Limiter{client: client, log: log, window: window, max: max}
}

// Allow records a request for identifier and reports whether it fits the
// window. Redis failures fail open: a broken limiter must not take the API
// down with it.
func (l *Limiter) Allow(ctx context.Context, identifier string) Result {
	key := fmt.Sprintf("ratelimit:%s", identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.log.WithError(err).Warn("rate limiter unavailable, allowing request", map[string]interface{}{
			"identifier": identifier,
		})
		return Result{Allowed: true, Remaining: l.max}
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.window).Err(); err != nil {
			l.log.WithError(err).Warn("failed to set rate limit window", map[string]interface{}{
				"identifier": identifier,
			})
		}
	}

	resetIn, err := l.client.PTTL(ctx, key).Result()
	if err != nil || resetIn < 0 {
		resetIn = l.window
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= l.max,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
