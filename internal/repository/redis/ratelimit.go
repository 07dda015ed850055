package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	playerRatePrefix = "ratelimit:player:"
	addrRatePrefix   = "ratelimit:addr:"
)

// RateLimiter throttles API traffic per caller using a fixed one-minute
// window in Redis. Known players are counted by id so their budget
// follows them across addresses; anonymous traffic falls back to the
// remote address.
type RateLimiter struct {
	client            *Client
	requestsPerMinute int
	burst             int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

// AllowPlayer checks the budget for an identified player.
// Returns (allowed, remaining, resetTime, error)
func (r *RateLimiter) AllowPlayer(ctx context.Context, playerID uuid.UUID) (bool, int, time.Time, error) {
	return r.allow(ctx, playerRatePrefix+playerID.String())
}

// AllowAddr checks the budget for anonymous traffic from a remote address.
func (r *RateLimiter) AllowAddr(ctx context.Context, addr string) (bool, int, time.Time, error) {
	return r.allow(ctx, addrRatePrefix+addr)
}

func (r *RateLimiter) allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	windowEnd := now.Truncate(time.Minute).Add(time.Minute)

	pipe := r.client.rdb.Pipeline()

	incrCmd := pipe.Incr(ctx, key)

	// Set expiry only when the counter is new, so the window does not
	// slide with every request.
	pipe.ExpireNX(ctx, key, time.Minute)

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := incrCmd.Val()
	limit := int64(r.requestsPerMinute + r.burst)
	remaining := int(limit - count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, windowEnd, nil
}

// ResetPlayer clears an identified player's counter.
func (r *RateLimiter) ResetPlayer(ctx context.Context, playerID uuid.UUID) error {
	return r.client.rdb.Del(ctx, playerRatePrefix+playerID.String()).Err()
}
