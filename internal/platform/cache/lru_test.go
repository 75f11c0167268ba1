package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, time.Minute)
	c.Set(ctx, "a", []string{"x", "y"})

	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	got[0] = "mutated"

	again, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, again)
}

func TestLRUInvalidateAndPurge(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, time.Minute)
	c.Set(ctx, "a", []string{"1"})
	c.Set(ctx, "b", []string{"2"})
	c.Set(ctx, "c", []string{"3"})

	c.Invalidate(ctx, "a", "b")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Purge(ctx)
	assert.Equal(t, 0, c.Len())
}

func TestLRUEvictsBySize(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Minute)
	c.Set(ctx, "a", nil)
	c.Set(ctx, "b", nil)
	c.Set(ctx, "c", nil)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpires(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, 20*time.Millisecond)
	c.Set(ctx, "a", []string{"1"})
	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
