package mssql

import (
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/retry"
)

// transientErrorNumbers are SQL Server error numbers worth retrying:
// deadlock victims, lock timeouts, and the Azure SQL throttling and
// failover family.
var transientErrorNumbers = map[int32]bool{
	1205:  true, // deadlock victim
	1222:  true, // lock request timeout
	4060:  true, // cannot open database (transient during failover)
	10928: true, // resource limit reached
	10929: true, // resource governance limit
	40197: true, // service error processing request
	40501: true, // service is busy
	40613: true, // database unavailable
	49918: true, // not enough resources to process request
	49919: true, // too many create/update operations
	49920: true, // too many operations in progress
	233:   true, // transport-level error on connection
	64:    true, // connection failed during login
}

// errorMessages translates SQL Server error numbers the host application is
// likely to surface into fixed user-facing text.
var errorMessages = map[int32]string{
	18456: "login failed for the configured user",
	4060:  "cannot open the requested database",
	102:   "incorrect syntax in statement",
	105:   "unclosed quotation mark in statement",
	207:   "invalid column name",
	208:   "invalid object name",
	229:   "permission denied on the referenced object",
	1205:  "statement was chosen as a deadlock victim",
}

// IsTransient classifies a driver error by the SQL Server error-number
// table, falling back to the shared transient phrase list.
func (s *Strategy) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var dberr mssql.Error
	if errors.As(err, &dberr) {
		return transientErrorNumbers[dberr.Number]
	}
	return retry.MatchesTransientPhrase(err)
}

// FormatError renders a driver error as a user-facing message. Known error
// numbers map to fixed text; other server errors keep the server's message;
// anything else is sanitized and prefixed with the dialect.
func (s *Strategy) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var dberr mssql.Error
	if errors.As(err, &dberr) {
		if msg, ok := errorMessages[dberr.Number]; ok {
			return fmt.Sprintf("SQL Server error %d: %s", dberr.Number, msg)
		}
		return fmt.Sprintf("SQL Server error %d: %s", dberr.Number, dberr.Message)
	}
	return fmt.Sprintf("SQL Server: %s", logging.SanitizeError(err))
}
