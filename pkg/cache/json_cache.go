package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// JSONCache stores JSON-encoded values under "{prefix}:{key}".
type JSONCache struct {
	client *RedisClient
	prefix string
}

// NewJSONCache creates a JSONCache for one key namespace.
func NewJSONCache(r *RedisClient, prefix string) *JSONCache {
	return &JSONCache{client: r, prefix: prefix}
}

// Get decodes the value at key into dst.
// Returns redis.Nil (wrapped) when the key does not exist or has expired.
func (c *JSONCache) Get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Client().Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set stores v at key for ttl.
func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Client().Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Client().Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}
