package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheKeyPrefix namespaces every cached response.
const CacheKeyPrefix = "guildpulse:api:"

// Cache serves encoded responses from redis and coalesces concurrent misses
// for the same key into a single load.
type Cache struct {
	client rueidis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCache creates a response cache. A nil client disables redis and keeps
// only request coalescing.
func NewCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("api_cache"),
	}
}

// Fetch returns the JSON encoding of the value produced by load.
func (c *Cache) Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) ([]byte, error) {
	key = CacheKeyPrefix + key

	if c.client != nil {
		data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
		if err == nil {
			return data, nil
		}

		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("Failed to read cached response", zap.String("key", key), zap.Error(err))
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		result, err := load(ctx)
		if err != nil {
			return nil, err
		}

		data, err := sonic.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response: %w", err)
		}

		if c.client != nil && c.ttl > 0 {
			err := c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build()).Error()
			if err != nil {
				c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
			}
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return value.([]byte), nil
}
