package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	l := NewMemoryLimiterWithClock(func() time.Time { return now })
	ctx := context.Background()

	ok, err := l.Allow(ctx, Key("policia"), 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	ok, _ = l.Allow(ctx, Key("policia"), 30*time.Second)
	assert.False(t, ok, "second check inside the interval")

	ok, _ = l.Allow(ctx, Key("dgt"), 45*time.Second)
	assert.True(t, ok, "portals are limited independently")

	now = now.Add(20 * time.Second)
	ok, _ = l.Allow(ctx, Key("policia"), 30*time.Second)
	assert.True(t, ok, "interval elapsed")
}

func TestMemoryLimiterZeroInterval(t *testing.T) {
	l := NewMemoryLimiter()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(context.Background(), Key("dgt"), 0)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, expiration time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = expiration
	return true, nil
}

func TestRedisLimiter(t *testing.T) {
	fake := &fakeRedis{keys: map[string]time.Duration{}}
	l := NewRedisLimiter(fake, "replica-1")
	ctx := context.Background()

	ok, err := l.Allow(ctx, Key("san-gva"), 40*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 40*time.Second, fake.keys["portal:ratelimit:san-gva"])

	ok, err = l.Allow(ctx, Key("san-gva"), 40*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLimiterError(t *testing.T) {
	down := errors.New("connection refused")
	l := NewRedisLimiter(&fakeRedis{err: down}, "replica-1")

	ok, err := l.Allow(context.Background(), Key("dgt"), time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, down)
}
