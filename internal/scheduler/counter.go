package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/rueidis"
)

// Counter tracks messages queued per guild since the last dispatched run.
type Counter interface {
	Increment(ctx context.Context, guildID uint64) (int64, error)
	Reset(ctx context.Context, guildID uint64) error
}

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	counts sync.Map
}

// NewMemoryCounter creates an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

// Increment adds one to the guild's counter and returns the new value.
func (c *MemoryCounter) Increment(_ context.Context, guildID uint64) (int64, error) {
	value, _ := c.counts.LoadOrStore(guildID, new(atomic.Int64))
	return value.(*atomic.Int64).Add(1), nil
}

// Reset zeroes the guild's counter.
func (c *MemoryCounter) Reset(_ context.Context, guildID uint64) error {
	if value, ok := c.counts.Load(guildID); ok {
		value.(*atomic.Int64).Store(0)
	}
	return nil
}

// RedisCounter keeps counters in Redis so they survive restarts and are shared
// between processes.
type RedisCounter struct {
	client rueidis.Client
	ttl    time.Duration
}

// DefaultCounterTTL expires idle counters.
const DefaultCounterTTL = 24 * time.Hour

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client rueidis.Client, ttl time.Duration) *RedisCounter {
	return &RedisCounter{
		client: client,
		ttl:    ttl,
	}
}

func counterKey(guildID uint64) string {
	return fmt.Sprintf("guildpulse:trigger:%d", guildID)
}

// Increment adds one to the guild's counter and refreshes its expiry.
func (c *RedisCounter) Increment(ctx context.Context, guildID uint64) (int64, error) {
	key := counterKey(guildID)

	results := c.client.DoMulti(ctx,
		c.client.B().Incr().Key(key).Build(),
		c.client.B().Expire().Key(key).Seconds(int64(c.ttl.Seconds())).Build(),
	)

	count, err := results[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment trigger counter: %w", err)
	}

	if err := results[1].Error(); err != nil {
		return 0, fmt.Errorf("failed to refresh trigger counter expiry: %w", err)
	}

	return count, nil
}

// Reset deletes the guild's counter.
func (c *RedisCounter) Reset(ctx context.Context, guildID uint64) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(counterKey(guildID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to reset trigger counter: %w", err)
	}
	return nil
}
