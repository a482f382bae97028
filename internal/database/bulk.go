package database

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sealevelil48/sealevel-dashboard/internal/errs"
	"github.com/sealevelil48/sealevel-dashboard/internal/sqlerr"
)

// identifierPattern is the allowed shape for table names. Table names are
// interpolated into SQL (they cannot be bound parameters), so anything else
// is rejected outright.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// BulkInsert writes rows into table in batches of batchSize.
//
// Each batch is submitted as one batched insert; a transaction is committed
// every CommitWindowBatches batches and at the end. The periodic commit
// bounds transaction size and lock duration on very large inputs at the cost
// of all-or-nothing atomicity: on failure, rows from already-committed
// windows STAY committed. The returned *errs.WriteError reports exactly how
// many rows were durable before the failure.
//
// Column order is taken from the sorted keys of the first row; every row must
// provide values for the same columns (missing keys insert NULL).
func (m *Manager) BulkInsert(ctx context.Context, table string, rows []map[string]any, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = m.cfg.Query.BulkBatchSize
	}
	commitWindow := m.cfg.Query.CommitWindowBatches
	if commitWindow <= 0 {
		commitWindow = 10
	}

	if !identifierPattern.MatchString(table) {
		return &errs.WriteError{Table: table, Err: fmt.Errorf("invalid table name")}
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		if !identifierPattern.MatchString(col) {
			return &errs.WriteError{Table: table, Err: fmt.Errorf("invalid column name %q", col)}
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)
	stmt := buildInsertStatement(table, columns)

	conn, err := m.acquire(ctx)
	if err != nil {
		m.counters.failedQueries.Add(1)
		return &errs.WriteError{Table: table, Err: err}
	}
	defer conn.Release()

	committed := 0 // rows durable in closed windows
	pending := 0   // rows staged in the open transaction
	batchesInWindow := 0

	tx, err := conn.Begin(ctx)
	if err != nil {
		m.counters.failedQueries.Add(1)
		return &errs.WriteError{Table: table, Err: err}
	}

	fail := func(cause error) error {
		_ = tx.Rollback(ctx)
		m.counters.failedQueries.Add(1)
		m.log.Error().
			Err(cause).
			Str("table", table).
			Str("class", string(sqlerr.Classify(cause))).
			Int("rows_committed", committed).
			Msg("bulk insert failed")
		return &errs.WriteError{Table: table, RowsCommitted: committed, Err: cause}
	}

	for offset := 0; offset < len(rows); offset += batchSize {
		end := offset + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[offset:end]

		if err := sendBatch(ctx, tx, stmt, columns, batch); err != nil {
			return fail(err)
		}
		pending += len(batch)
		batchesInWindow++

		// Close the commit window: make staged rows durable and open a fresh
		// transaction for the next window.
		if batchesInWindow >= commitWindow && end < len(rows) {
			if err := tx.Commit(ctx); err != nil {
				return fail(err)
			}
			committed += pending
			pending = 0
			batchesInWindow = 0
			m.log.Info().
				Str("table", table).
				Int("rows", committed).
				Int("total", len(rows)).
				Msg("bulk insert progress")

			if tx, err = conn.Begin(ctx); err != nil {
				m.counters.failedQueries.Add(1)
				return &errs.WriteError{Table: table, RowsCommitted: committed, Err: err}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(err)
	}
	committed += pending

	m.log.Info().Str("table", table).Int("rows", committed).Msg("bulk insert completed")
	return nil
}

// sendBatch queues one insert per row and executes them as a single batched
// round trip inside the open transaction.
func sendBatch(ctx context.Context, tx pgx.Tx, stmt string, columns []string, batch []map[string]any) error {
	b := &pgx.Batch{}
	for _, row := range batch {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = row[col]
		}
		b.Queue(stmt, args...)
	}

	results := tx.SendBatch(ctx, b)
	for range batch {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func buildInsertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
