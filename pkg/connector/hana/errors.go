package hana

import (
	"errors"
	"fmt"

	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/retry"
)

// serverError is the slice of go-hdb's database error surface the
// classifier needs: the server error code and its message text.
type serverError interface {
	error
	Code() int
	Text() string
}

// transientErrorCodes are HANA SQL error codes worth retrying: rolled-back
// transactions, lock waits, deadlocks, and resource pressure.
var transientErrorCodes = map[int]bool{
	4:   true, // cannot allocate enough memory
	129: true, // transaction rolled back by an internal error
	131: true, // transaction rolled back by lock wait timeout
	133: true, // transaction rolled back by detected deadlock
	138: true, // transaction serialization failure
	146: true, // resource busy and acquire with NOWAIT specified
}

// errorMessages translates HANA SQL error codes the host application is
// likely to surface into fixed user-facing text.
var errorMessages = map[int]string{
	10:  "authentication failed for the configured user",
	131: "transaction rolled back by lock wait timeout",
	133: "transaction rolled back by detected deadlock",
	257: "sql syntax error in statement",
	258: "insufficient privilege for the referenced object",
	259: "invalid table name",
	260: "invalid column name",
	362: "invalid schema name",
}

// IsTransient classifies a driver error by the HANA error-code table,
// falling back to the shared transient phrase list.
func (s *Strategy) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var dberr serverError
	if errors.As(err, &dberr) {
		return transientErrorCodes[dberr.Code()]
	}
	return retry.MatchesTransientPhrase(err)
}

// FormatError renders a driver error as a user-facing message. Known error
// codes map to fixed text; other server errors keep the server's message;
// anything else is sanitized and prefixed with the dialect.
func (s *Strategy) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var dberr serverError
	if errors.As(err, &dberr) {
		if msg, ok := errorMessages[dberr.Code()]; ok {
			return fmt.Sprintf("HANA error %d: %s", dberr.Code(), msg)
		}
		return fmt.Sprintf("HANA error %d: %s", dberr.Code(), dberr.Text())
	}
	return fmt.Sprintf("HANA: %s", logging.SanitizeError(err))
}
