package cache

import (
	"context"
	"testing"
	"time"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache()
	t.Cleanup(c.Close)
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "key", map[string]any{"count": 3}, time.Minute)
	require.NoError(t, err)

	value, err := c.Get(ctx, "key")
	require.NoError(t, err)

	// Values round-trip through JSON, so numbers come back as float64
	m, ok := value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), m["count"])
}

func TestGet_Miss(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestGet_Expired(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestExists(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	exists, err = c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSet_UnmarshalableValue(t *testing.T) {
	c := newTestCache(t)

	err := c.Set(context.Background(), "key", make(chan int), time.Minute)
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	assert.Equal(t, 0, c.Size())

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))

	assert.Equal(t, 2, c.Size())
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			c.Set(ctx, "shared", i, time.Minute)
		}
	}()

	for i := 0; i < 100; i++ {
		c.Get(ctx, "shared")
	}
	<-done
}
