package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/retry"
)

// transientStates are SQLSTATE codes worth retrying; transientClasses are
// whole SQLSTATE classes (connection exceptions, insufficient resources).
var (
	transientStates = map[string]bool{
		"40001": true, // serialization_failure
		"40P01": true, // deadlock_detected
		"55P03": true, // lock_not_available
		"57P03": true, // cannot_connect_now
	}
	transientClasses = map[string]bool{
		"08": true, // connection exception
		"53": true, // insufficient resources
	}
)

// errorMessages translates SQLSTATE codes the host application is likely to
// surface into fixed user-facing text.
var errorMessages = map[string]string{
	"28P01": "password authentication failed for the configured user",
	"28000": "the configured user is not authorized to connect",
	"3D000": "the requested database does not exist",
	"42601": "syntax error in statement",
	"42P01": "undefined table",
	"42703": "undefined column",
	"42501": "insufficient privilege for the referenced object",
	"40P01": "deadlock detected",
	"57014": "statement was cancelled",
}

// IsTransient classifies a driver error by SQLSTATE, falling back to the
// shared transient phrase list.
func (s *Strategy) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientStates[pgErr.Code] {
			return true
		}
		return len(pgErr.Code) >= 2 && transientClasses[pgErr.Code[:2]]
	}
	return retry.MatchesTransientPhrase(err)
}

// FormatError renders a driver error as a user-facing message. Known
// SQLSTATEs map to fixed text; other server errors keep the server's
// message; anything else is sanitized and prefixed with the dialect.
func (s *Strategy) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := errorMessages[pgErr.Code]; ok {
			return fmt.Sprintf("PostgreSQL error %s: %s", pgErr.Code, msg)
		}
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg = strings.TrimSuffix(msg, ".") + ": " + pgErr.Detail
		}
		return fmt.Sprintf("PostgreSQL error %s: %s", pgErr.Code, msg)
	}
	return fmt.Sprintf("PostgreSQL: %s", logging.SanitizeError(err))
}
