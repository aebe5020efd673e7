package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "backup-run-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Second request inside the window is rejected
	allowed, err = limiter.Allow(ctx, "backup-run-1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "backup-run-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "backup-run-2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiter_WindowExpiry(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}
