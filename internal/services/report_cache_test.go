package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	reports map[uint]Report
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[uint]Report)}
}

func (c *memoryCache) Get(_ context.Context, id uint) (*Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[id]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (c *memoryCache) Set(_ context.Context, id uint, r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[id] = *r
}

func (c *memoryCache) Invalidate(_ context.Context, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, id)
}

func TestRedisReportCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	cache := NewReportCache(rdb, time.Minute)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)

	want := &Report{General: Rating{Competence1: 1.5, Competence4: -0.33}}
	cache.Set(ctx, 7, want)
	assert.True(t, mr.Exists("report:trainee:7"))
	assert.Equal(t, time.Minute, mr.TTL("report:trainee:7"))

	got, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, want, got)

	cache.Invalidate(ctx, 7)
	_, ok = cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestRedisReportCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	cache := NewReportCache(rdb, time.Minute)
	cache.Set(ctx, 1, &Report{})

	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
}

func TestRedisReportCacheIgnoresGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, mr.Set("report:trainee:3", "not json"))
	_, ok := NewReportCache(rdb, time.Minute).Get(context.Background(), 3)
	assert.False(t, ok)
}

func TestNoopReportCache(t *testing.T) {
	cache := NewReportCache(nil, time.Minute)
	ctx := context.Background()
	cache.Set(ctx, 1, &Report{})
	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
	cache.Invalidate(ctx, 1)
}
