package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-mobile/internal/cache"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}
	res, err := limiter.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.WithinDuration(t, time.Now().Add(time.Minute), res.ResetAt, 2*time.Second)

	other, err := limiter.Allow(ctx, "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	limiter.Reset(ctx, "ip:1")
	res, err = limiter.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{CleanupInterval: time.Hour}))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = limiter.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	time.Sleep(40 * time.Millisecond)
	res, err = limiter.Allow(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiter_Validation(t *testing.T) {
	_, err := NewRateLimiter(nil)
	assert.Error(t, err)
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	_, err = limiter.Allow(context.Background(), "k", 0, time.Minute)
	assert.Error(t, err)
}
