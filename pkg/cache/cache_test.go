package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadiary-server/pkg/cache"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewInMemory()

	require.NoError(t, c.Set(ctx, "diary:u1:list", "a", 0))
	require.NoError(t, c.Set(ctx, "diary:u1:facets:diary", "b", time.Minute))
	require.NoError(t, c.Set(ctx, "diary:u2:list", "c", 0))
	require.NoError(t, c.Set(ctx, "expired", "d", time.Nanosecond))

	v, ok := c.Get(ctx, "diary:u1:list")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	time.Sleep(time.Millisecond)
	_, ok = c.Get(ctx, "expired")
	assert.False(t, ok)

	require.NoError(t, c.DeletePrefix(ctx, "diary:u1:"))
	_, ok = c.Get(ctx, "diary:u1:list")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "diary:u1:facets:diary")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "diary:u2:list")
	assert.True(t, ok)
}
