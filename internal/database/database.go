// Package database is the data-access core that sits between the HTTP
// handlers and PostgreSQL.
//
// It owns:
//   - the bounded connection pool (pgxpool) and its degraded fallback
//   - the Redis-backed query result cache
//   - chunked query execution and batched bulk writes
//   - process-wide query metrics and the health probe
//
// A Manager is constructed once at startup and passed by handle to callers;
// there is no ambient global state, which keeps construction in tests clean.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sealevelil48/sealevel-dashboard/internal/cache"
	"github.com/sealevelil48/sealevel-dashboard/internal/config"
	"github.com/sealevelil48/sealevel-dashboard/internal/errs"
)

// initState tracks startup progress through the retry state machine:
// Connecting(attempt) advances to Connected on success, to the next attempt
// on failure, and finally to Degraded or Fatal once attempts exhaust.
type initState int

const (
	stateConnecting initState = iota
	stateConnected
	stateDegraded
	stateFatal
)

const (
	// retryBaseDelay is multiplied by the attempt number for linear backoff:
	// 2s, 4s, 6s.
	retryBaseDelay = 2 * time.Second

	pingTimeout = 5 * time.Second
)

// Cache is the contract the manager needs from the query cache layer. It is
// satisfied by *cache.QueryCache; tests substitute an in-memory fake.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Invalidate(ctx context.Context, prefix string) int
	Enabled() bool
	Ping(ctx context.Context) bool
	Close()
}

// Manager is the data-access manager. All methods are safe for concurrent
// use; the pool is the sole serialization point for store access.
type Manager struct {
	cfg   *config.Config
	log   *zerolog.Logger
	pool  Pool
	cache Cache

	counters counters
	degraded atomic.Bool

	// injectable for tests
	dial  dialers
	sleep func(time.Duration)
}

// dialers groups the connection constructors so initialization is testable
// without a live server.
type dialers struct {
	pool   func(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (Pool, error)
	single func(ctx context.Context, cfg config.DatabaseConfig) (Pool, error)
	redis  func(url string) (*redis.Client, error)
}

func defaultDialers() dialers {
	return dialers{
		pool:   newPgxPool,
		single: connectSingle,
		redis: func(url string) (*redis.Client, error) {
			opts, err := redis.ParseURL(url)
			if err != nil {
				return nil, err
			}
			return redis.NewClient(opts), nil
		},
	}
}

// New initializes the manager: it builds the connection pool and the cache
// client with retry, and falls back per deployment policy when the store
// stays unreachable. See initialize for the exact state machine.
func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*Manager, error) {
	m := &Manager{
		cfg:   cfg,
		log:   log,
		dial:  defaultDialers(),
		sleep: time.Sleep,
	}
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// initialize attempts pooled setup up to MaxRetries times with linearly
// increasing delay. When every attempt fails, the outcome depends on the
// FailFatal policy: either the documented degraded mode (one unpooled
// connection, no cache) or a hard ErrConnectionUnavailable.
func (m *Manager) initialize(ctx context.Context) error {
	maxRetries := m.cfg.Database.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	state := stateConnecting
	var lastErr error

	for attempt := 1; state == stateConnecting; attempt++ {
		pool, err := m.dial.pool(ctx, m.cfg, m.log)
		if err == nil {
			m.pool = pool
			m.cache = m.connectCache(ctx)
			state = stateConnected
			break
		}

		lastErr = err
		m.log.Error().Err(err).Int("attempt", attempt).Msg("connection initialization failed")

		if attempt < maxRetries {
			m.sleep(time.Duration(attempt) * retryBaseDelay)
			continue
		}

		if m.cfg.Database.FailFatal {
			state = stateFatal
		} else {
			state = stateDegraded
		}
	}

	switch state {
	case stateConnected:
		m.log.Info().Msg("database connections initialized")
		return nil

	case stateDegraded:
		pool, err := m.dial.single(ctx, m.cfg.Database)
		if err != nil {
			m.log.Error().Err(err).Msg("failed to establish fallback connection")
			return fmt.Errorf("%w: %v", errs.ErrConnectionUnavailable, errors.Join(lastErr, err))
		}
		m.pool = pool
		m.cache = cache.New(nil, m.log)
		m.degraded.Store(true)
		m.log.Warn().Msg("using degraded database connection without pooling or caching")
		return nil

	default: // stateFatal
		return fmt.Errorf("%w: %v", errs.ErrConnectionUnavailable, lastErr)
	}
}

// connectCache builds the optional query cache client. A missing REDIS_URL
// disables caching; a configured but unreachable Redis is logged and also
// disables it. Neither is an error: the cache is an optimization.
func (m *Manager) connectCache(ctx context.Context) Cache {
	url := m.cfg.Redis.URL
	if url == "" {
		m.log.Info().Msg("no cache store configured, query cache disabled")
		return cache.New(nil, m.log)
	}

	client, err := m.dial.redis(url)
	if err != nil {
		m.log.Warn().Err(err).Msg("invalid redis configuration, query cache disabled")
		return cache.New(nil, m.log)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		m.log.Warn().Err(err).Msg("redis connection failed, query cache disabled")
		_ = client.Close()
		return cache.New(nil, m.log)
	}

	m.log.Info().Msg("redis cache connected")
	return cache.New(client, m.log)
}

// acquire checks out a connection, blocking the caller for at most the
// configured acquire timeout. Timeout maps to ErrPoolExhausted so callers can
// distinguish "busy, retry later" from execution failures.
func (m *Manager) acquire(ctx context.Context) (Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.Database.AcquireTimeoutDuration())
	defer cancel()

	conn, err := m.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errs.ErrPoolExhausted
		}
		return nil, err
	}

	m.counters.poolAcquires.Add(1)
	return conn, nil
}

// Cache exposes the query cache for explicit invalidation by callers.
func (m *Manager) Cache() Cache {
	return m.cache
}

// Degraded reports whether the manager fell back to the unpooled connection.
func (m *Manager) Degraded() bool {
	return m.degraded.Load()
}

// PingDatabase probes the backing store with a bounded timeout.
func (m *Manager) PingDatabase(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return m.pool.Ping(pingCtx)
}

// Close releases the pool and the cache client.
func (m *Manager) Close() {
	m.log.Info().Msg("closing database connections")
	if m.pool != nil {
		m.pool.Close()
	}
	if m.cache != nil {
		m.cache.Close()
	}
}
