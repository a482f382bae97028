// Package sqlerr classifies database driver errors.
//
// It parses the cryptic SQLSTATE codes carried by pgconn.PgError into stable
// categories so the data layer can log and report failures meaningfully
// without leaking raw driver internals to callers.
package sqlerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Code is a friendly category for a database error.
type Code string

const (
	UniqueViolation     Code = "unique_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	NotNullViolation    Code = "not_null_violation"
	CheckViolation      Code = "check_violation"
	UndefinedTable      Code = "undefined_table"
	UndefinedColumn     Code = "undefined_column"
	SyntaxError         Code = "syntax_error"
	QueryCanceled       Code = "query_canceled"
	ConnectionFailure   Code = "connection_failure"
	InsufficientPrivs   Code = "insufficient_privilege"
	Other               Code = "other"
)

// MapCode maps a raw SQLSTATE to a Code category.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	case "42P01":
		return UndefinedTable
	case "42703":
		return UndefinedColumn
	case "42601":
		return SyntaxError
	case "57014":
		return QueryCanceled
	case "42501":
		return InsufficientPrivs
	}

	// Class 08 covers all connection exceptions.
	if len(sqlstate) >= 2 && sqlstate[:2] == "08" {
		return ConnectionFailure
	}
	return Other
}

// Classify walks the error chain and reports the category of the first
// Postgres error it finds, or Other for non-database errors.
func Classify(err error) Code {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return MapCode(pgerr.Code)
	}
	return Other
}

// IsRetryable reports whether the failure class is transient: connection
// drops and cancellations may succeed on retry, constraint violations and
// malformed SQL will not.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ConnectionFailure, QueryCanceled:
		return true
	}
	return false
}
