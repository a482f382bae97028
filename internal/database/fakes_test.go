package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/sealevelil48/sealevel-dashboard/internal/cache"
	"github.com/sealevelil48/sealevel-dashboard/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Database: config.DatabaseConfig{
			URL:            "postgres://test",
			MinConns:       1,
			MaxConns:       2,
			AcquireTimeout: 1,
			MaxRetries:     3,
		},
		Query: config.QueryConfig{
			DefaultCacheTTL:     300,
			DefaultChunkSize:    100,
			SlowQueryMillis:     1000,
			BulkBatchSize:       10,
			CommitWindowBatches: 10,
		},
	}
}

func newTestManager(pool Pool, c Cache, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = testConfig()
	}
	log := zerolog.Nop()
	if c == nil {
		c = cache.New(nil, &log)
	}
	return &Manager{
		cfg:   cfg,
		log:   &log,
		pool:  pool,
		cache: c,
		sleep: func(time.Duration) {},
	}
}

// --- in-memory cache ---------------------------------------------------------

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	gets    int
	lastTTL time.Duration
	pingOK  bool
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte), pingOK: true}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	payload, ok := c.entries[key]
	return payload, ok
}

func (c *memCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.lastTTL = ttl
	c.entries[key] = payload
}

func (c *memCache) Invalidate(_ context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, cache.Namespace+prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted
}

func (c *memCache) Enabled() bool             { return true }
func (c *memCache) Ping(context.Context) bool { return c.pingOK }
func (c *memCache) Close()                    {}

// --- fake rows ---------------------------------------------------------------

type fakeRows struct {
	cols      []string
	rows      [][]any
	idx       int
	rowsErr   error // returned from Err after iteration stops
	valuesErr error // returned from Values on every call
	closed    bool
}

func (r *fakeRows) Close()          { r.closed = true }
func (r *fakeRows) Err() error      { return r.rowsErr }
func (r *fakeRows) Next() bool      { r.idx++; return r.idx <= len(r.rows) }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }

func (r *fakeRows) Scan(...any) error {
	return errors.New("scan not supported by fakeRows")
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, col := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: col}
	}
	return fds
}

func (r *fakeRows) Values() ([]any, error) {
	if r.valuesErr != nil {
		return nil, r.valuesErr
	}
	return r.rows[r.idx-1], nil
}

// --- fake pool and conn ------------------------------------------------------

type fakePool struct {
	sem      chan struct{}
	capacity int

	acquires      atomic.Int64
	releases      atomic.Int64
	active        atomic.Int64
	maxConcurrent atomic.Int64

	queryFn func(ctx context.Context, sql string, args []any) (pgx.Rows, error)
	beginFn func(ctx context.Context) (pgx.Tx, error)
	pingErr error
}

func newFakePool(capacity int) *fakePool {
	p := &fakePool{
		sem:      make(chan struct{}, capacity),
		capacity: capacity,
	}
	for i := 0; i < capacity; i++ {
		p.sem <- struct{}{}
	}
	return p
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	select {
	case <-p.sem:
		p.acquires.Add(1)
		return &fakeConn{pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

func (p *fakePool) Stat() PoolStat {
	acquired := int32(p.capacity - len(p.sem))
	return PoolStat{
		TotalConns:    int32(p.capacity),
		IdleConns:     int32(p.capacity) - acquired,
		AcquiredConns: acquired,
		MaxConns:      int32(p.capacity),
	}
}

func (p *fakePool) Close() {}

type fakeConn struct {
	pool     *fakePool
	released bool
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	active := c.pool.active.Add(1)
	defer c.pool.active.Add(-1)
	for {
		current := c.pool.maxConcurrent.Load()
		if active <= current || c.pool.maxConcurrent.CompareAndSwap(current, active) {
			break
		}
	}

	if c.pool.queryFn == nil {
		return &fakeRows{}, nil
	}
	return c.pool.queryFn(ctx, sql, args)
}

func (c *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	if c.pool.beginFn == nil {
		return nil, errors.New("begin not configured")
	}
	return c.pool.beginFn(ctx)
}

func (c *fakeConn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.pool.releases.Add(1)
	c.pool.sem <- struct{}{}
}

// --- fake transactions and batch results -------------------------------------

// txRecorder tracks bulk-writer activity across the successive transactions
// opened by commit windows.
type txRecorder struct {
	mu            sync.Mutex
	batchesSent   int
	rowsPerBatch  []int
	commits       int
	rollbacks     int
	committedRows int
	pendingRows   int

	failAtBatch  int // 1-based batch index whose Exec fails; 0 = never
	commitErr    error
	failAtCommit int // 1-based commit index that fails; 0 = never
}

func (rec *txRecorder) begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{rec: rec}, nil
}

type fakeTx struct {
	rec *txRecorder
}

func (t *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()

	t.rec.batchesSent++
	t.rec.rowsPerBatch = append(t.rec.rowsPerBatch, b.Len())

	if t.rec.failAtBatch != 0 && t.rec.batchesSent == t.rec.failAtBatch {
		return &fakeBatchResults{execErr: errors.New("batch insert failed")}
	}

	t.rec.pendingRows += b.Len()
	return &fakeBatchResults{remaining: b.Len()}
}

func (t *fakeTx) Commit(context.Context) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()

	t.rec.commits++
	if t.rec.failAtCommit != 0 && t.rec.commits == t.rec.failAtCommit {
		t.rec.pendingRows = 0
		return errors.New("commit failed")
	}
	if t.rec.commitErr != nil {
		return t.rec.commitErr
	}
	t.rec.committedRows += t.rec.pendingRows
	t.rec.pendingRows = 0
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.rollbacks++
	t.rec.pendingRows = 0
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported by fakeTx")
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(...any) error { return errors.New("not implemented") }

type fakeBatchResults struct {
	remaining int
	execErr   error
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if b.execErr != nil {
		return pgconn.CommandTag{}, b.execErr
	}
	b.remaining--
	return pgconn.CommandTag{}, nil
}

func (b *fakeBatchResults) Query() (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBatchResults) QueryRow() pgx.Row { return errRow{} }

func (b *fakeBatchResults) Close() error { return nil }
