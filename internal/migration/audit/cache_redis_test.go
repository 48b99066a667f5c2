package audit

import (
	"context"
	"testing"
	"time"

	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379", // needs a running Redis
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping test")
	}

	cache := NewRedisCache(rdb, time.Minute)
	report := sampleReport("redis-cache-test")
	defer rdb.Del(ctx, reportKey(report.ID))

	_, ok, err := cache.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, report))
	got, ok, err := cache.Get(ctx, report.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.ID, got.ID)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, "parse failure", got.Results[1].Notes[0])

	ttl := rdb.TTL(ctx, reportKey(report.ID)).Val()
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestNewRedisClientFromConfig(t *testing.T) {
	assert.Nil(t, NewRedisClientFromConfig(nil))
	assert.Nil(t, NewRedisClientFromConfig(&config.RedisConfig{}))
	c := NewRedisClientFromConfig(&config.RedisConfig{Addr: "localhost:6379", DB: 1})
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Options().DB)
	_ = c.Close()
}
