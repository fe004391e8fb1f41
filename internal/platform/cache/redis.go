package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// The process shares one Redis connection handle, established on first use
// and reused until Close. The once guard makes concurrent first callers
// race-safe.
var (
	client  *redis.Client
	once    sync.Once
	connErr error
)

// Connect returns the process-wide Redis client, establishing it on the
// first call. Subsequent calls return the same handle regardless of URI.
func Connect(ctx context.Context, uri string) (*redis.Client, error) {
	once.Do(func() {
		opts, err := redis.ParseURL(uri)
		if err != nil {
			connErr = fmt.Errorf("cache: parse redis uri: %w", err)
			return
		}

		c := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx).Err(); err != nil {
			connErr = fmt.Errorf("cache: ping: %w", err)
			return
		}

		client = c
	})
	return client, connErr
}

// Close releases the shared connection. Safe to call when Connect was never
// reached or failed.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
