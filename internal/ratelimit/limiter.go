package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a keyed fixed-window rate limiter. Allow reports whether the
// caller identified by key may perform another action inside the current
// window and, when allowed, consumes one attempt.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// redisLimiter counts attempts in Redis with INCR + EXPIRE so the window
// survives restarts and is shared across instances.
type redisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) Limiter {
	return &redisLimiter{client: client}
}

func (l *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := l.client.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("rate limit lookup for %s: %w", key, err)
	}
	if count >= limit {
		return false, nil
	}

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	// NX so the window is anchored at the first attempt
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit increment for %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}

// memoryLimiter is the in-process fallback used when Redis is not
// configured. Windows are anchored at the first attempt, like the Redis
// implementation.
type memoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter() Limiter {
	return &memoryLimiter{windows: make(map[string]*window)}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string, limit int, d time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(d)}
		return limit >= 1, nil
	}

	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}
