package database

import (
	"context"
	"sync/atomic"
)

// counters are the process-wide query counters. They are updated atomically
// from concurrent request goroutines and reset only on process restart.
type counters struct {
	totalQueries  atomic.Int64
	cacheHits     atomic.Int64
	slowQueries   atomic.Int64
	failedQueries atomic.Int64
	poolAcquires  atomic.Int64
}

// Metrics is a point-in-time snapshot of the manager's performance counters
// and pool occupancy.
type Metrics struct {
	TotalQueries  int64    `json:"total_queries"`
	CacheHits     int64    `json:"cache_hits"`
	SlowQueries   int64    `json:"slow_queries"`
	FailedQueries int64    `json:"failed_queries"`
	PoolAcquires  int64    `json:"pool_acquires"`
	CacheHitRate  float64  `json:"cache_hit_rate"`
	Pool          PoolStat `json:"connection_pool"`
	Degraded      bool     `json:"degraded"`
	CacheEnabled  bool     `json:"cache_enabled"`
}

// Metrics returns the current snapshot. The hit rate divides by
// max(1, total) so it is defined (zero) before any query has run.
func (m *Manager) Metrics() Metrics {
	total := m.counters.totalQueries.Load()
	hits := m.counters.cacheHits.Load()

	denominator := total
	if denominator < 1 {
		denominator = 1
	}

	return Metrics{
		TotalQueries:  total,
		CacheHits:     hits,
		SlowQueries:   m.counters.slowQueries.Load(),
		FailedQueries: m.counters.failedQueries.Load(),
		PoolAcquires:  m.counters.poolAcquires.Load(),
		CacheHitRate:  float64(hits) / float64(denominator),
		Pool:          m.pool.Stat(),
		Degraded:      m.Degraded(),
		CacheEnabled:  m.cache.Enabled(),
	}
}

// HealthCheck probes the backing store and, when configured, the cache
// store. It reports false on any failure and never returns an error; the
// probes are side-effect-free and hold no connection beyond the round trip.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	if err := m.PingDatabase(ctx); err != nil {
		m.log.Error().Err(err).Msg("database health check failed")
		return false
	}

	if m.cache.Enabled() && !m.cache.Ping(ctx) {
		m.log.Error().Msg("cache health check failed")
		return false
	}

	return true
}
