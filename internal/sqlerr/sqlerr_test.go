package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapCode(t *testing.T) {
	tests := []struct {
		sqlstate string
		want     Code
	}{
		{"23505", UniqueViolation},
		{"23503", ForeignKeyViolation},
		{"23502", NotNullViolation},
		{"23514", CheckViolation},
		{"42P01", UndefinedTable},
		{"42703", UndefinedColumn},
		{"42601", SyntaxError},
		{"57014", QueryCanceled},
		{"42501", InsufficientPrivs},
		{"08006", ConnectionFailure},
		{"08000", ConnectionFailure},
		{"XX000", Other},
		{"", Other},
	}
	for _, tt := range tests {
		t.Run(tt.sqlstate, func(t *testing.T) {
			assert.Equal(t, tt.want, MapCode(tt.sqlstate))
		})
	}
}

func TestClassify(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	assert.Equal(t, UniqueViolation, Classify(pgErr))

	wrapped := fmt.Errorf("insert failed: %w", pgErr)
	assert.Equal(t, UniqueViolation, Classify(wrapped))

	assert.Equal(t, Other, Classify(errors.New("not a database error")))
	assert.Equal(t, Other, Classify(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "57014"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain error")))
}
