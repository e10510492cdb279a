package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCacheStore_Namespaces(t *testing.T) {
	ctx := context.Background()
	root := NewStore(Options{Prefix: ":app:"})
	a := root.Namespace("a")
	b := root.Namespace("b")

	require.NoError(t, a.SetString(ctx, "k", "va", time.Minute))
	require.NoError(t, b.SetString(ctx, "k", "vb", time.Minute))
	v, ok := a.GetString(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "va", v)
	v, ok = root.GetString(ctx, "b:k")
	require.True(t, ok)
	assert.Equal(t, "vb", v)

	a.Delete(ctx, "k")
	_, ok = a.GetString(ctx, "k")
	assert.False(t, ok)
}

func TestGoCacheStore_IncrementKeepsWindow(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{})

	n, err := s.Increment(ctx, "hits", 1, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	first, ok := s.TTL(ctx, "hits")
	require.True(t, ok)

	n, err = s.Increment(ctx, "hits", 2, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	second, ok := s.TTL(ctx, "hits")
	require.True(t, ok)
	assert.LessOrEqual(t, second, first)

	str, ok := s.GetString(ctx, "hits")
	require.True(t, ok)
	assert.Equal(t, "3", str)

	n, err = s.Increment(ctx, " ", 1, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok = s.TTL(ctx, "absent")
	assert.False(t, ok)
}
