// Package apperrors defines the error taxonomy shared by every connector.
// Callers classify failures with errors.As against the typed errors here;
// the sentinel values cover conditions that carry no context of their own.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

var (
	ErrNoCreator          = errors.New("no connection creator registered for dialect")
	ErrUnknownConnection  = errors.New("connection does not belong to this pool")
	ErrMissingParameter   = errors.New("missing query parameter")
	ErrCredentialMismatch = errors.New("credentials were encrypted with a different key")
)

// ValidationError reports a statement rejected before any connection was
// acquired. Reason is safe to show to end users; Err optionally carries the
// underlying cause (for example ErrMissingParameter) for errors.Is checks.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a dial, auth, or host failure for one database.
type ConnectionError struct {
	Dialect    models.Dialect
	DatabaseID string
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection to %q failed: %v", e.Dialect, e.DatabaseID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError reports a statement that failed to execute: syntax errors,
// missing objects, or mid-flight execution failures.
type QueryError struct {
	Dialect    models.Dialect
	DatabaseID string
	QueryID    string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query %s on %q failed: %v", e.Dialect, e.QueryID, e.DatabaseID, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// SchemaError reports a catalog introspection failure.
type SchemaError struct {
	Dialect    models.Dialect
	DatabaseID string
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema introspection on %q failed: %v", e.Dialect, e.DatabaseID, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// UnsupportedDialectError reports a CreateConnector call for a dialect with no
// registered connector in this build.
type UnsupportedDialectError struct {
	Dialect models.Dialect
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported dialect: %s (no connector registered)", e.Dialect)
}

// PoolExhaustedError reports that a pool hit max_pool_size with no idle
// connection available. Acquisition fails fast; there is no wait queue.
type PoolExhaustedError struct {
	DatabaseID string
	Limit      int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("connection pool exhausted for database %q (limit %d)", e.DatabaseID, e.Limit)
}

// CancelledError reports a query interrupted through the tracker or by its
// context deadline. Timeout distinguishes a deadline expiry from an explicit
// cancel.
type CancelledError struct {
	QueryID string
	Timeout bool
}

func (e *CancelledError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("query %s timed out", e.QueryID)
	}
	return fmt.Sprintf("query %s was cancelled", e.QueryID)
}

// IsCancelled reports whether err is, or wraps, a CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// IsPoolExhausted reports whether err is, or wraps, a PoolExhaustedError.
func IsPoolExhausted(err error) bool {
	var pe *PoolExhaustedError
	return errors.As(err, &pe)
}
