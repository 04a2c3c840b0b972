// Package connector gives every SQL dialect one uniform execution surface:
// validated, dialect-converted, pooled, retried, and cancellable query
// execution plus catalog introspection. A shared pipeline (Base) does the
// orchestration; each dialect contributes a small Strategy with its DSN
// format, parameter style, row-bound rewrite, transient-error table, error
// formatting, and catalog SQL.
package connector

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/dataglade/dataglade-connect/pkg/config"
	"github.com/dataglade/dataglade-connect/pkg/crypto"
	"github.com/dataglade/dataglade-connect/pkg/dialect"
	"github.com/dataglade/dataglade-connect/pkg/models"
	"github.com/dataglade/dataglade-connect/pkg/pool"
	"github.com/dataglade/dataglade-connect/pkg/retry"
	"github.com/dataglade/dataglade-connect/pkg/tracker"
)

// QueryOptions carries per-call execution knobs. Zero values fall back to the
// configured defaults (config.QueryConfig).
type QueryOptions struct {
	// Timeout bounds the whole execution, including retries.
	Timeout time.Duration
	// MaxRows caps the number of materialized result rows; rows beyond the
	// cap set Truncated on the result instead of growing it.
	MaxRows int
}

// Connector is the uniform surface the host application talks to. One
// instance serves every database of its dialect; the target database is
// passed per call.
type Connector interface {
	// Dialect reports which SQL dialect this connector speaks.
	Dialect() models.Dialect

	// TestConnection dials the database through the pool and reports
	// reachability with a human-readable message.
	TestConnection(ctx context.Context, cfg *models.DatabaseConfig) (bool, string)

	// ExecuteQuery runs one read-only statement through the full pipeline:
	// validate, convert to this dialect, bind {{name}} parameters, acquire a
	// pooled connection, register for cancellation, execute with retry, and
	// build the result envelope. The connection is released and the query
	// unregistered on every exit path.
	ExecuteQuery(ctx context.Context, cfg *models.DatabaseConfig, query string, params map[string]any, opts QueryOptions) (*models.QueryResult, error)

	// CancelQuery interrupts the in-flight query with the given id and
	// reports whether a cancellation was delivered.
	CancelQuery(queryID string) bool

	// GetSchema introspects the database catalog into a nested schema tree,
	// under the same retry policy as query execution.
	GetSchema(ctx context.Context, cfg *models.DatabaseConfig) (*models.DatabaseSchema, error)

	// ValidateQuery reports why a statement would be rejected, without
	// touching any connection.
	ValidateQuery(query string) error

	// IsReadOnlyQuery classifies a statement by its leading keyword.
	IsReadOnlyQuery(query string) bool

	// FormatError renders any pipeline error as a user-facing message, with
	// driver detail translated and credentials redacted.
	FormatError(err error) string
}

// Strategy supplies the dialect-specific pieces the shared pipeline composes.
// Implementations are stateless; all per-call state flows through arguments.
type Strategy interface {
	// Dialect reports the dialect this strategy implements.
	Dialect() models.Dialect

	// DriverName names the database/sql driver to open handles with.
	DriverName() string

	// DSN builds the driver connection string. password is the decrypted
	// credential; it must never be logged.
	DSN(cfg *models.DatabaseConfig, password string) string

	// ParamStyle selects how {{name}} placeholders are rendered.
	ParamStyle() ParamStyle

	// LimitQuery bounds the statement at n rows server-side where the
	// dialect can do so safely. Returning the query unchanged is always
	// allowed; the result processor enforces the cap client-side regardless.
	LimitQuery(query string, n int) string

	// IsTransient classifies a driver error for the retry policy, by error
	// code table plus the shared phrase list.
	IsTransient(err error) bool

	// FormatError renders a driver error as a human-readable message.
	FormatError(err error) string

	// ReadSchema walks the dialect's catalog views and returns the schema
	// tree, restricted to cfg.DefaultSchema when set.
	ReadSchema(ctx context.Context, db *sql.DB, cfg *models.DatabaseConfig) ([]models.SchemaInfo, error)
}

// Deps bundles the shared collaborators a connector pipeline runs on. The
// registry builds one Deps and hands it to every constructor, so all dialects
// share one pool, one tracker, and one conversion cache.
type Deps struct {
	Pool     *pool.Manager
	Tracker  *tracker.Tracker
	Dialects *dialect.Handler
	// Cipher decrypts password_encrypted values at dial time. May be nil
	// when no credentials key is configured; dialing a database with an
	// encrypted password then fails.
	Cipher *crypto.CredentialCipher
	Query  config.QueryConfig
	// Retry is the base policy; the pipeline swaps in each dialect's
	// IsTransient classifier.
	Retry  retry.Policy
	Logger *zap.Logger
}

// ConnectorConstructor builds a dialect connector over the registry's shared
// dependencies. The dialect subpackages provide these; pkg/connector/drivers
// links them in per build tag.
type ConnectorConstructor func(deps *Deps) Connector
