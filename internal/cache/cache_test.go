package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(client), mr
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		EventID string  `json:"event_id"`
		Value   float64 `json:"value"`
	}

	err := c.Set(ctx, "idem:default:single:k1", payload{EventID: "42", Value: 1.5}, time.Hour)
	assert.NoError(t, err)

	var got payload
	found, err := c.Get(ctx, "idem:default:single:k1", &got)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", got.EventID)
	assert.Equal(t, 1.5, got.Value)
}

func TestCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got map[string]any
	found, err := c.Get(context.Background(), "missing", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	var got string
	found, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "usage:default:a", 1, time.Minute))
	assert.NoError(t, c.Set(ctx, "usage:default:b", 2, time.Minute))
	assert.NoError(t, c.Set(ctx, "usage:other:a", 3, time.Minute))

	assert.NoError(t, c.DeleteByPrefix(ctx, "usage:default:"))

	var got int
	found, _ := c.Get(ctx, "usage:default:a", &got)
	assert.False(t, found)
	found, _ = c.Get(ctx, "usage:other:a", &got)
	assert.True(t, found)
}
