package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis from a URL such as redis://localhost:6379/0
// and pings it before returning.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AttemptLimiter counts attempts per key in fixed windows. It guards the
// credential endpoints, where per-process token buckets aren't enough:
// every replica has to see the same count.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewAttemptLimiter(client *redis.Client, prefix string, limit int64, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit. The window starts at the first attempt. INCR and EXPIRE NX run in
// one MULTI so a counter can never be left without a TTL.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// Reset forgets the attempts for key, e.g. after a successful login.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	k := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)
	if err := l.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}
