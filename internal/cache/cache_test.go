package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	log := zerolog.Nop()
	c := New(nil, &log)

	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.False(t, c.Ping(ctx))

	c.Set(ctx, Namespace+"k", []byte("payload"), time.Minute)
	_, ok := c.Get(ctx, Namespace+"k")
	assert.False(t, ok)

	assert.Equal(t, 0, c.Invalidate(ctx, ""))
	c.Close()
}

func TestUnreachableStoreDegradesToMiss(t *testing.T) {
	log := zerolog.Nop()
	// Nothing listens here; every command fails with a dial error.
	client := redis.NewClient(&redis.Options{
		Addr:            "127.0.0.1:1",
		DialTimeout:     50 * time.Millisecond,
		ReadTimeout:     50 * time.Millisecond,
		WriteTimeout:    50 * time.Millisecond,
		MaxRetries:      -1,
		PoolTimeout:     50 * time.Millisecond,
		MinRetryBackoff: -1,
		MaxRetryBackoff: -1,
	})
	c := New(client, &log)
	defer c.Close()

	ctx := context.Background()

	assert.True(t, c.Enabled(), "a configured client counts as enabled even when unreachable")
	assert.False(t, c.Ping(ctx))

	c.Set(ctx, Namespace+"k", []byte("payload"), time.Minute)
	_, ok := c.Get(ctx, Namespace+"k")
	assert.False(t, ok)

	assert.Equal(t, 0, c.Invalidate(ctx, ""))
}

func TestSetSkipsNonPositiveTTL(t *testing.T) {
	log := zerolog.Nop()
	// A nil-client cache cannot observe the skip, so use an unreachable client
	// and rely on the TTL guard short-circuiting before any network call.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: time.Nanosecond,
	})
	c := New(client, &log)
	defer c.Close()

	start := time.Now()
	c.Set(context.Background(), Namespace+"k", []byte("payload"), 0)
	c.Set(context.Background(), Namespace+"k", []byte("payload"), -time.Minute)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
