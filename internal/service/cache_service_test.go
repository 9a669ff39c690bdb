package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceRemember(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	loads := 0
	load := func(dest *[]string) func(context.Context) error {
		return func(context.Context) error {
			loads++
			*dest = []string{"slotA", "slotB"}
			return nil
		}
	}

	var first []string
	require.NoError(t, cache.Remember(ctx, "scheduling:timeslots", &first, load(&first)))
	var second []string
	require.NoError(t, cache.Remember(ctx, "scheduling:timeslots", &second, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, []string{"slotA", "slotB"}, second)

	require.NoError(t, cache.Invalidate(ctx, "scheduling:*"))
	assert.Empty(t, repo.items)
}

func TestCacheServiceDisabledPassesThrough(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(ctx, "key", "value", 0))
	assert.Empty(t, repo.items)

	var nilCache *CacheService
	hit, err := nilCache.Get(ctx, "key", new(string))
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, nilCache.Invalidate(ctx, "key"))
}

func TestCacheServiceFailuresFallThrough(t *testing.T) {
	cache := NewCacheService(failingCacheRepo{}, nil, 0, nil, true)
	ctx := context.Background()

	hit, err := cache.Get(ctx, "key", new(string))
	assert.False(t, hit)
	assert.Error(t, err)

	var value string
	err = cache.Remember(ctx, "key", &value, func(context.Context) error {
		value = "loaded"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", value)

	loadErr := errors.New("db down")
	assert.ErrorIs(t, cache.Remember(ctx, "key", &value, func(context.Context) error { return loadErr }), loadErr)
}
