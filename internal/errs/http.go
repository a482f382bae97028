package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sealevelil48/sealevel-dashboard/internal/sqlerr"
)

// HTTPError is the JSON error shape returned to API clients.
//
// Code is a stable machine-readable identifier (e.g. "POOL_EXHAUSTED"),
// Message is human-readable, Status is the HTTP status code.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports whether target is also an *HTTPError, so
// errors.Is(err, &HTTPError{}) can be used as a type check.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// NewServiceUnavailableError creates a 503 HTTPError.
func NewServiceUnavailableError(message string) *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(http.StatusServiceUnavailable)),
		Message: message,
		Status:  http.StatusServiceUnavailable,
	}
}

// NewBadRequestError creates a 400 HTTPError.
func NewBadRequestError(message string) *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(http.StatusBadRequest)),
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewInternalServerError creates a generic 500 HTTPError. The internal cause
// is logged server-side, never echoed to the client.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError)),
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	}
}

// FromDataError maps a data-layer error to the HTTPError returned to clients.
// Bulk write failures expose the partial-success count so callers know which
// rows are durable; transient driver failures (connection drops,
// cancellations) map to 503 so clients retry instead of giving up; everything
// else stays a generic 500 with details only in the server logs.
func FromDataError(err error) *HTTPError {
	var writeErr *WriteError
	switch {
	case errors.Is(err, ErrPoolExhausted):
		return &HTTPError{
			Code:    "POOL_EXHAUSTED",
			Message: "database is busy, please retry",
			Status:  http.StatusServiceUnavailable,
		}
	case errors.Is(err, ErrConnectionUnavailable):
		return NewServiceUnavailableError("database is unavailable")
	case errors.As(err, &writeErr):
		return &HTTPError{
			Code:    "WRITE_FAILED",
			Message: fmt.Sprintf("bulk insert failed; %d rows were committed before the failure", writeErr.RowsCommitted),
			Status:  http.StatusInternalServerError,
		}
	case sqlerr.IsRetryable(err):
		return &HTTPError{
			Code:    "TRANSIENT_DATABASE_ERROR",
			Message: "temporary database failure, please retry",
			Status:  http.StatusServiceUnavailable,
		}
	default:
		return NewInternalServerError()
	}
}

// MakeUpperCaseWithUnderscores converts a status text like "Bad Request"
// into a stable machine code like "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
