// Package ratelimit grants portal checks across watchers so a single portal
// is not hit more often than its configured interval.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const keyPrefix = "portal:ratelimit:"

// Key returns the limiter key for a portal.
func Key(portalID string) string {
	return keyPrefix + portalID
}

// SetNXer is the subset of the Redis client used by RedisLimiter.
type SetNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

// RedisLimiter holds a key for the interval. Whoever sets it first gets the
// check; everyone else is refused until it expires. Works across replicas.
type RedisLimiter struct {
	client SetNXer
	owner  string
}

// NewRedisLimiter creates a limiter. owner is stored as the key value to
// make the holder visible when inspecting Redis.
func NewRedisLimiter(client SetNXer, owner string) *RedisLimiter {
	return &RedisLimiter{client: client, owner: owner}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, key, l.owner, interval)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

// MemoryLimiter is the single-process equivalent of RedisLimiter.
type MemoryLimiter struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return NewMemoryLimiterWithClock(time.Now)
}

func NewMemoryLimiterWithClock(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		until: make(map[string]time.Time),
		now:   now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.until[key]; ok && now.Before(until) {
		return false, nil
	}
	l.until[key] = now.Add(interval)
	return true, nil
}
