package main

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gin-rw-views/internal/cache"
	"gin-rw-views/internal/config"
)

func TestNewCacheBothLevels(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Cache.Shards = 16

	ctx := context.Background()
	c, closeCache, err := newCache(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeCache()

	require.NoError(t, c.Set(ctx, "user:1:groups", []int{1, 2}, cache.Options{}))
	require.True(t, mr.Exists("rwviews:user:1:groups"))

	var ids []int
	found, err := c.Get(ctx, "user:1:groups", &ids, cache.Options{})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []int{1, 2}, ids)
}

func TestNewCacheL1OnlyNeedsNoRedis(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Cache.Mode = "l1"
	cfg.Redis.Addr = ""
	cfg.Cache.Shards = 16

	c, closeCache, err := newCache(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	closeCache()
}

func TestNewCacheFailsWhenRedisIsUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	for _, mode := range []string{"both", "l2"} {
		cfg := config.Default()
		cfg.Cache.Mode = mode
		cfg.Cache.Shards = 16
		cfg.Redis.Addr = addr

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, closeCache, err := newCache(ctx, cfg, zap.NewNop())
		cancel()
		require.ErrorContains(t, err, "failed connecting to redis", mode)
		require.Nil(t, c)
		require.Nil(t, closeCache)
	}
}

func TestNewCacheRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Cache.Mode = "l3"
	_, _, err := newCache(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
