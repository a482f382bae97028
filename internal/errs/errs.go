// Package errs defines the error taxonomy of the data-access layer.
//
// The categories mirror how callers are expected to react:
//   - ErrConnectionUnavailable: startup never reached the store; fatal unless
//     the deployment allows degraded mode.
//   - ErrPoolExhausted: no free connection within the acquire timeout; the
//     caller may retry.
//   - QueryError / WriteError: surfaced to the caller with diagnostic context,
//     never retried internally.
//
// Cache failures are deliberately absent: the cache layer absorbs them.
package errs

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnectionUnavailable indicates the backing store could not be
	// reached during initialization after all retry attempts.
	ErrConnectionUnavailable = errors.New("database connection unavailable")

	// ErrPoolExhausted indicates no pooled connection became free within the
	// configured acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")
)

// QueryError wraps a query execution failure with enough context for
// diagnosis. Query holds a truncated fragment of the statement text; parameter
// values are intentionally omitted so diagnostics never leak row data or
// credentials.
type QueryError struct {
	Query   string
	Elapsed time.Duration
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed after %s: %v (query: %s)", e.Elapsed, e.Err, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Err }

// WriteError wraps a bulk insert failure. RowsCommitted reports how many rows
// were durably committed in earlier commit windows before the failure; callers
// must treat bulk inserts as partial-success operations.
type WriteError struct {
	Table         string
	RowsCommitted int
	Err           error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("bulk insert into %q failed: %v (%d rows committed before failure)",
		e.Table, e.Err, e.RowsCommitted)
}

func (e *WriteError) Unwrap() error { return e.Err }
