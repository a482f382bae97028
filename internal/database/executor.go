package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sealevelil48/sealevel-dashboard/internal/errs"
	"github.com/sealevelil48/sealevel-dashboard/internal/sqlerr"
)

const (
	// queryLogLimit bounds how much query text ends up in diagnostics, so
	// pathological statements cannot blow up log volume.
	queryLogLimit = 100

	// emptyResultTTLCap keeps negative lookups cached only briefly: repeated
	// misses are still a cache win, but an empty answer should not mask fresh
	// rows for long.
	emptyResultTTLCap = time.Minute
)

// Execute runs a query with caching and chunked row collection.
//
// The cache is consulted first; a hit returns without touching the pool. On a
// miss a connection is acquired for the duration of the statement, rows are
// pulled in chunks of chunkSize to bound peak memory on large scans, and the
// combined result is stored under the cache key with cacheTTL.
//
// Non-positive cacheTTL and chunkSize fall back to the configured defaults.
// Any failure increments the failed-query counter and surfaces as a
// *errs.QueryError wrapping the cause; partially read chunks are discarded,
// never cached.
func (m *Manager) Execute(ctx context.Context, query string, params map[string]any, cacheTTL time.Duration, chunkSize int) (*ResultSet, error) {
	if cacheTTL <= 0 {
		cacheTTL = time.Duration(m.cfg.Query.DefaultCacheTTL) * time.Second
	}
	if chunkSize <= 0 {
		chunkSize = m.cfg.Query.DefaultChunkSize
	}

	m.counters.totalQueries.Add(1)

	// An empty key means the params could not be serialized; such calls run
	// uncached.
	key := CacheKey(query, params)
	if key != "" {
		if payload, ok := m.cache.Get(ctx, key); ok {
			rs, err := DecodeResultSet(payload)
			if err == nil {
				m.counters.cacheHits.Add(1)
				return rs, nil
			}
			// Undecodable payload is treated as a miss; the fresh result below
			// overwrites it.
			m.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		}
	}

	start := time.Now()

	rs, err := m.runQuery(ctx, query, params, chunkSize)
	elapsed := time.Since(start)
	if err != nil {
		m.counters.failedQueries.Add(1)
		m.log.Error().
			Err(err).
			Str("query", truncateQuery(query)).
			Str("class", string(sqlerr.Classify(err))).
			Dur("elapsed", elapsed).
			Msg("query execution failed")
		return nil, &errs.QueryError{Query: truncateQuery(query), Elapsed: elapsed, Err: err}
	}

	if elapsed > m.cfg.Query.SlowQueryThreshold() {
		m.counters.slowQueries.Add(1)
		m.log.Warn().
			Str("query", truncateQuery(query)).
			Dur("elapsed", elapsed).
			Int("rows", rs.RowCount()).
			Msg("slow query detected")
	}

	if key != "" {
		ttl := cacheTTL
		if rs.RowCount() == 0 && ttl > emptyResultTTLCap {
			ttl = emptyResultTTLCap
		}
		if payload, err := rs.Encode(); err == nil {
			m.cache.Set(ctx, key, payload, ttl)
		} else {
			m.log.Warn().Err(err).Msg("failed to encode result set for caching")
		}
	}

	return rs, nil
}

// runQuery owns the connection for exactly one statement: acquire, execute,
// collect in chunks, release on every path.
func (m *Manager) runQuery(ctx context.Context, query string, params map[string]any, chunkSize int) (*ResultSet, error) {
	conn, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var rows pgx.Rows
	if len(params) > 0 {
		rows, err = conn.Query(ctx, query, pgx.NamedArgs(params))
	} else {
		rows, err = conn.Query(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs := &ResultSet{Rows: [][]any{}}
	for _, fd := range rows.FieldDescriptions() {
		rs.Columns = append(rs.Columns, string(fd.Name))
	}

	chunk := make([][]any, 0, chunkSize)
	chunks := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		chunk = append(chunk, normalizeRow(values))

		if len(chunk) == chunkSize {
			rs.Rows = append(rs.Rows, chunk...)
			chunk = chunk[:0]
			chunks++
			if chunks%10 == 0 {
				m.log.Debug().Int("rows", rs.RowCount()).Msg("large result set in progress")
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rs.Rows = append(rs.Rows, chunk...)

	return rs, nil
}

func truncateQuery(query string) string {
	if len(query) > queryLogLimit {
		return query[:queryLogLimit] + "..."
	}
	return query
}
