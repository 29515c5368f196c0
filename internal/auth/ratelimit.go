package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a client has used its send allowance for
// the current window.
var ErrRateLimited = errors.New("send rate limit exceeded")

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Limit is the number of sends allowed per client per window.
	Limit int
	// Window is the length of a fixed counting window.
	Window time.Duration
}

// RateLimiter counts sends per client in fixed Redis windows.
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
	now    func() time.Time
}

// NewRateLimiter creates a new RateLimiter with the given Redis client and configuration.
func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// Allow counts one send for client and returns ErrRateLimited once the
// window's allowance is used up. Anonymous callers and a limiter without a
// Redis client are never limited.
func (rl *RateLimiter) Allow(ctx context.Context, client string) error {
	if rl.client == nil || client == "" || rl.config.Limit <= 0 {
		return nil
	}

	key, ttl := rl.windowKey(client)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}

	if count := incr.Val(); count > int64(rl.config.Limit) {
		return fmt.Errorf("%w (%d/%d per %s)", ErrRateLimited, count, rl.config.Limit, rl.config.Window)
	}
	return nil
}

// windowKey returns the counter key for the window containing now and the
// time left until that window closes.
func (rl *RateLimiter) windowKey(client string) (string, time.Duration) {
	window := rl.config.Window
	if window <= 0 {
		window = time.Hour
	}
	now := rl.now().UTC()
	start := now.Truncate(window)
	key := fmt.Sprintf("ratelimit:send:%s:%d", client, start.Unix())
	return key, start.Add(window).Sub(now) + time.Second
}
