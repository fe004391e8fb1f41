// Package cache provides a read-through Redis cache with best-effort
// semantics: every operation degrades to a miss or a no-op on backend
// failure, so the database remains the source of truth and callers never
// see a cache error.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/widgetlabs/widget-api/pkg/logger"
)

// scanBatch bounds the per-iteration work of prefix deletion; SCAN keeps the
// server responsive where KEYS would block it.
const scanBatch = 100

// Cache wraps a Redis client with a layered codec: JSON first for
// interoperability, gob as a fallback for values JSON cannot express, raw
// bytes as the last resort on read.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a cache over the shared client with the given default TTL.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// NewWithClient is an alias kept for call sites that inject a test client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return New(client, ttl)
}

// TTL reports the default expiry applied by Set.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Set stores value under key with the given ttl (zero means the default).
// Returns whether the value was stored; failures are logged, never returned.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if c == nil || c.client == nil {
		return false
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	payload, err := json.Marshal(value)
	if err != nil {
		payload, err = gobEncode(value)
		if err != nil {
			logger.LoggerWrapper().Warn("cache: value not encodable, skipping store",
				"key", key, "error", err)
			return false
		}
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.LoggerWrapper().Warn("cache: set failed", "key", key, "error", err)
		return false
	}
	return true
}

// GetInto loads key and decodes it into dest, trying JSON then gob. Returns
// whether dest was populated; absence and backend errors both read as a miss.
func (c *Cache) GetInto(ctx context.Context, key string, dest interface{}) bool {
	raw, ok := c.GetRaw(ctx, key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dest); err == nil {
		return true
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(dest); err == nil {
		return true
	}

	logger.LoggerWrapper().Warn("cache: stored value not decodable", "key", key)
	return false
}

// GetRaw loads the stored bytes for key without decoding.
func (c *Cache) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.LoggerWrapper().Warn("cache: get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

// Delete removes a single key. Reports whether a key was removed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if c == nil || c.client == nil {
		return false
	}
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		logger.LoggerWrapper().Warn("cache: delete failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// DeletePrefix removes every key matching prefix* via incremental SCAN and
// batched DEL, returning the number of keys removed.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) int {
	if c == nil || c.client == nil {
		return 0
	}

	var (
		cursor  uint64
		removed int64
	)
	pattern := prefix + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			logger.LoggerWrapper().Warn("cache: scan failed", "prefix", prefix, "error", err)
			return int(removed)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				logger.LoggerWrapper().Warn("cache: batch delete failed", "prefix", prefix, "error", err)
				return int(removed)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return int(removed)
		}
	}
}

// Keys lists keys matching pattern via SCAN. Intended for diagnostics and
// tests, not hot paths.
func (c *Cache) Keys(ctx context.Context, pattern string) []string {
	if c == nil || c.client == nil {
		return nil
	}

	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			logger.LoggerWrapper().Warn("cache: scan failed", "pattern", pattern, "error", err)
			return out
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out
		}
	}
}

// FlushAll clears the entire cache database.
func (c *Cache) FlushAll(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		logger.LoggerWrapper().Warn("cache: flush failed", "error", err)
		return false
	}
	return true
}

func gobEncode(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
