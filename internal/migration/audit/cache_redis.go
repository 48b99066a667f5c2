package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/migration/service"
	"github.com/redis/go-redis/v9"
)

const reportKeyPrefix = "rulemigrator:run:"

// RedisCache stores reports as JSON with a TTL.
type RedisCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewRedisCache(r *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{R: r, TTL: ttl}
}

// NewRedisClientFromConfig constructs a redis client from app config. An empty address
// yields nil.
func NewRedisClientFromConfig(c *config.RedisConfig) *redis.Client {
	if c == nil || c.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

func reportKey(id string) string { return reportKeyPrefix + id }

func (c *RedisCache) Get(ctx context.Context, id string) (*service.Report, bool, error) {
	data, err := c.R.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", id, err)
	}
	var report service.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report %s: %w", id, err)
	}
	return &report, true, nil
}

func (c *RedisCache) Set(ctx context.Context, report *service.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.ID, err)
	}
	if err := c.R.Set(ctx, reportKey(report.ID), data, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", report.ID, err)
	}
	return nil
}
