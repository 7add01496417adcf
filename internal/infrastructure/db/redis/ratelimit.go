package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter is a fixed-window request counter keyed by route and client.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per window for each key.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts one hit against key. The window starts on the first hit and is
// not extended by later ones.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := rateLimitKeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit: %w", err)
	}

	return decide(int(incr.Val()), l.limit, ttl.Val(), l.window), nil
}

func decide(count, limit int, ttl, window time.Duration) Decision {
	if ttl <= 0 {
		ttl = window
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: count <= limit, Limit: limit, Remaining: remaining}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}
