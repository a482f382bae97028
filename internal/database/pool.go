package database

import (
	"context"
	"fmt"
	"time"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/sealevelil48/sealevel-dashboard/internal/config"
	"github.com/sealevelil48/sealevel-dashboard/internal/logger"
)

// Conn is a single backing-store connection checked out by exactly one
// caller. Release returns it to the pool; it must be called on every exit
// path.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Pool hands out and reclaims connections. The pgxpool-backed implementation
// is used in normal operation; the single-connection implementation backs
// degraded mode. Tests inject fakes.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Stat() PoolStat
	Close()
}

// PoolStat is a snapshot of pool occupancy.
type PoolStat struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// --- pgxpool-backed pool ----------------------------------------------------

type pgxPool struct {
	pool *pgxpool.Pool
}

type pgxPoolConn struct {
	conn *pgxpool.Conn
}

func (c *pgxPoolConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

func (c *pgxPoolConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.conn.Begin(ctx)
}

func (c *pgxPoolConn) Release() {
	c.conn.Release()
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxPoolConn{conn: conn}, nil
}

func (p *pgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *pgxPool) Stat() PoolStat {
	s := p.pool.Stat()
	return PoolStat{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

func (p *pgxPool) Close() {
	p.pool.Close()
}

// newPgxPool builds the pooled connection from config.
//
// Pool sizing, recycling, and the pre-acquire liveness probe map directly to
// pgxpool settings: MaxConnLifetime bounds staleness by recycling old
// connections, and BeforeAcquire pings the connection before handing it out
// so broken connections are discarded and replaced rather than surfaced to
// callers.
func newPgxPool(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (Pool, error) {
	dbCfg := cfg.Database

	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MaxConnLifetime = time.Duration(dbCfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(dbCfg.MaxConnIdleTime) * time.Second
	poolConfig.ConnConfig.ConnectTimeout = time.Duration(dbCfg.ConnectTimeout) * time.Second

	if dbCfg.StatementTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] =
			fmt.Sprintf("%d", dbCfg.StatementTimeout*1000)
	}

	if dbCfg.PrePing {
		poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			return conn.Ping(ctx) == nil
		}
	}

	// SQL tracing is noisy; only the local env gets per-query logs.
	if cfg.Primary.Env == "local" {
		level := log.GetLevel()
		pgxLogger := logger.NewPgxLogger(level)
		poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(pgxLogger),
			LogLevel: logger.GetPgxTraceLogLevel(level),
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &pgxPool{pool: pool}, nil
}

// --- degraded single-connection pool ----------------------------------------

// singleConner is the subset of *pgx.Conn the degraded pool needs. It exists
// so the blocking semantics of the degraded pool are testable without a
// server.
type singleConner interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// singlePool serializes all access through one unpooled connection. It is the
// degraded fallback after startup retries exhaust: correct but slow, and
// visible as such through metrics.
type singlePool struct {
	conn singleConner
	sem  chan struct{}
}

func newSinglePool(conn singleConner) *singlePool {
	sp := &singlePool{
		conn: conn,
		sem:  make(chan struct{}, 1),
	}
	sp.sem <- struct{}{}
	return sp
}

// connectSingle dials the unpooled fallback connection.
func connectSingle(ctx context.Context, cfg config.DatabaseConfig) (Pool, error) {
	connConfig, err := singleConnConfig(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to establish fallback connection: %w", err)
	}
	return newSinglePool(conn), nil
}

func singleConnConfig(cfg config.DatabaseConfig) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	connConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	return connConfig, nil
}

type singlePoolConn struct {
	pool *singlePool
}

func (c *singlePoolConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.pool.conn.Query(ctx, sql, args...)
}

func (c *singlePoolConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.pool.conn.Begin(ctx)
}

func (c *singlePoolConn) Release() {
	c.pool.sem <- struct{}{}
}

// Acquire suspends the calling goroutine until the connection is free or ctx
// expires. Only the caller blocks; unrelated work keeps running.
func (p *singlePool) Acquire(ctx context.Context) (Conn, error) {
	select {
	case <-p.sem:
		return &singlePoolConn{pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping goes through the semaphore like every other use of the connection: a
// bare *pgx.Conn is not safe for concurrent use, so the probe must wait for
// the current holder rather than share the wire with it.
func (p *singlePool) Ping(ctx context.Context) error {
	select {
	case <-p.sem:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { p.sem <- struct{}{} }()

	return p.conn.Ping(ctx)
}

func (p *singlePool) Stat() PoolStat {
	acquired := int32(1 - len(p.sem))
	return PoolStat{
		TotalConns:    1,
		IdleConns:     1 - acquired,
		AcquiredConns: acquired,
		MaxConns:      1,
	}
}

func (p *singlePool) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.conn.Close(ctx)
}
