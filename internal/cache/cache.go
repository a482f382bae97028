// Package cache implements the Redis-backed query result cache.
//
// The cache is purely an optimization: every failure (unreachable Redis,
// timeout, bad payload) is logged and degrades to a miss or a no-op. No error
// from this package ever reaches a caller, so the data layer stays correct
// with Redis absent, down, or flapping.
//
// Keys live under the "query_cache:" namespace so families of cached queries
// can be invalidated by prefix without flushing unrelated keys.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Namespace is the key prefix shared by all query cache entries.
const Namespace = "query_cache:"

// invalidateScanCount is the SCAN page size used during prefix invalidation.
const invalidateScanCount = 500

// QueryCache wraps a Redis client with the absorb-all-errors cache contract.
// A nil client means the cache is disabled; all operations become no-ops.
type QueryCache struct {
	client *redis.Client
	log    *zerolog.Logger
}

// New creates a QueryCache. client may be nil to run with caching disabled.
func New(client *redis.Client, log *zerolog.Logger) *QueryCache {
	return &QueryCache{client: client, log: log}
}

// Enabled reports whether a cache store is configured.
func (c *QueryCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached payload for key, or false on a miss. Errors are
// logged and reported as misses.
func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache retrieval failed")
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under key with the given TTL. A non-positive TTL skips
// the write: an entry without expiry would never be refreshed.
func (c *QueryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if !c.Enabled() || ttl <= 0 {
		return
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache storage failed")
	}
}

// Invalidate removes all entries whose key starts with Namespace + prefix and
// returns how many were deleted. An empty prefix clears the whole query cache
// namespace. Uses SCAN rather than KEYS so invalidation never blocks Redis.
func (c *QueryCache) Invalidate(ctx context.Context, prefix string) int {
	if !c.Enabled() {
		return 0
	}

	pattern := Namespace + prefix + "*"
	deleted := 0

	iter := c.client.Scan(ctx, 0, pattern, invalidateScanCount).Iterator()
	batch := make([]string, 0, invalidateScanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == invalidateScanCount {
			deleted += c.deleteKeys(ctx, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		deleted += c.deleteKeys(ctx, batch)
	}

	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation scan failed")
	}

	c.log.Info().Str("pattern", pattern).Int("deleted", deleted).Msg("cache invalidated")
	return deleted
}

func (c *QueryCache) deleteKeys(ctx context.Context, keys []string) int {
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.log.Warn().Err(err).Int("keys", len(keys)).Msg("cache delete failed")
		return 0
	}
	return int(n)
}

// Ping probes the cache store. Returns false when the cache is disabled or
// unreachable; it never returns an error.
func (c *QueryCache) Ping(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	return c.client.Ping(ctx).Err() == nil
}

// Close releases the underlying Redis client.
func (c *QueryCache) Close() {
	if c.Enabled() {
		if err := c.client.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}
