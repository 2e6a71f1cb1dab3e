package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bloodlink/internal/platform/redis"
	"bloodlink/pkg/domain"
)

// Cache stores computed forecasts so repeated reads within the TTL skip the
// model.
type Cache interface {
	Get(ctx context.Context, key string) (map[domain.BloodGroup]int, bool, error)
	Set(ctx context.Context, key string, value map[domain.BloodGroup]int, ttl time.Duration) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     map[domain.BloodGroup]int
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (map[domain.BloodGroup]int, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make(map[domain.BloodGroup]int, len(entry.value))
	for k, v := range entry.value {
		out[k] = v
	}
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value map[domain.BloodGroup]int, ttl time.Duration) error {
	stored := make(map[domain.BloodGroup]int, len(value))
	for k, v := range value {
		stored[k] = v
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: stored, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache shares forecasts across instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (map[domain.BloodGroup]int, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached forecast: %w", err)
	}
	var value map[domain.BloodGroup]int
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached forecast: %w", err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value map[domain.BloodGroup]int, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cached forecast: %w", err)
	}
	return nil
}
