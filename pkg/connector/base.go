package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/models"
	"github.com/dataglade/dataglade-connect/pkg/pool"
	"github.com/dataglade/dataglade-connect/pkg/retry"
	"github.com/dataglade/dataglade-connect/pkg/sqlguard"
)

// Base implements Connector as a shared pipeline over a dialect Strategy.
// All dialects run the same validate, convert, bind, acquire, track, retry,
// and process sequence; the strategy contributes only the dialect-specific
// pieces.
type Base struct {
	strategy Strategy
	deps     *Deps
	logger   *zap.Logger
}

// NewBase builds the pipeline connector for one dialect strategy.
func NewBase(s Strategy, deps *Deps) *Base {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		strategy: s,
		deps:     deps,
		logger:   logger.Named("connector").Named(s.Dialect().String()),
	}
}

// Dialect reports the strategy's dialect.
func (b *Base) Dialect() models.Dialect {
	return b.strategy.Dialect()
}

// ValidateQuery runs the read-only and injection checks without touching a
// connection.
func (b *Base) ValidateQuery(query string) error {
	_, err := sqlguard.Validate(query)
	return err
}

// IsReadOnlyQuery classifies a statement by its leading keyword.
func (b *Base) IsReadOnlyQuery(query string) bool {
	return sqlguard.IsReadOnly(query)
}

// FormatError renders any pipeline error through the dialect's formatter.
func (b *Base) FormatError(err error) string {
	return b.strategy.FormatError(err)
}

// CancelQuery interrupts the in-flight query with the given id.
func (b *Base) CancelQuery(queryID string) bool {
	return b.deps.Tracker.Cancel(queryID)
}

// TestConnection dials through the pool and reports reachability. The
// connection stays pooled afterwards, so a succeeding test leaves a warm
// entry behind.
func (b *Base) TestConnection(ctx context.Context, cfg *models.DatabaseConfig) (bool, string) {
	if err := cfg.Validate(); err != nil {
		return false, err.Error()
	}

	pc, err := b.deps.Pool.Get(ctx, cfg)
	if err != nil {
		return false, b.strategy.FormatError(err)
	}
	b.deps.Pool.Release(pc)

	return true, fmt.Sprintf("connected to %s (%s) at %s:%d", cfg.ID, b.strategy.Dialect(), cfg.Host, cfg.Port)
}

// ExecuteQuery runs one read-only statement through the full pipeline. See
// the Connector interface for the contract; cancellation via the tracker or
// the context deadline surfaces as *apperrors.CancelledError.
func (b *Base) ExecuteQuery(ctx context.Context, cfg *models.DatabaseConfig, query string, params map[string]any, opts QueryOptions) (*models.QueryResult, error) {
	start := time.Now()

	normalized, err := sqlguard.Validate(query)
	if err != nil {
		return nil, err
	}

	if hits := sqlguard.CheckParameters(params); len(hits) > 0 {
		b.logger.Warn("parameter value failed injection screening",
			zap.String("db_id", cfg.ID),
			zap.String("param", hits[0].ParamName))
		return nil, &apperrors.ValidationError{
			Reason: fmt.Sprintf("parameter %q failed injection screening", hits[0].ParamName),
		}
	}

	converted, warnings := b.deps.Dialects.AutoConvert(normalized, b.strategy.Dialect())
	if len(warnings) > 0 {
		b.logger.Info("statement converted for dialect",
			zap.String("db_id", cfg.ID),
			zap.Strings("warnings", warnings))
	}

	bound, args, err := BindPlaceholders(converted, params, b.strategy.ParamStyle())
	if err != nil {
		return nil, &apperrors.ValidationError{Reason: err.Error(), Err: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.deps.Query.DefaultTimeout
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = b.deps.Query.DefaultMaxRows
	}

	runSQL := bound
	if maxRows > 0 {
		// One spare row beyond the cap lets the processor tell a full page
		// from a truncated one without transferring the whole remainder.
		runSQL = b.strategy.LimitQuery(bound, maxRows+1)
	}

	pc, err := b.deps.Pool.Get(ctx, cfg)
	if err != nil {
		return nil, err
	}

	handle, ok := pc.Conn().(*DBConn)
	if !ok {
		b.deps.Pool.Release(pc)
		return nil, fmt.Errorf("pooled connection for %q does not carry a database handle", cfg.ID)
	}

	queryID := uuid.NewString()
	var execCtx context.Context
	var cancelExec context.CancelFunc
	if timeout > 0 {
		execCtx, cancelExec = context.WithTimeout(ctx, timeout)
	} else {
		execCtx, cancelExec = context.WithCancel(ctx)
	}
	defer cancelExec()

	b.deps.Tracker.Register(queryID, cfg.ID, func() bool {
		// Poison the session first so release closes it, then break the
		// in-flight driver call.
		b.deps.Pool.MarkUnhealthy(pc)
		cancelExec()
		return true
	})
	defer func() {
		b.deps.Tracker.Unregister(queryID)
		b.deps.Pool.Release(pc)
	}()

	policy := b.deps.Retry
	policy.IsTransient = b.strategy.IsTransient

	serverBounded := runSQL != bound
	result, err := retry.DoWithResult(execCtx, policy, func() (*models.QueryResult, error) {
		rows, qerr := handle.DB().QueryContext(execCtx, runSQL, args...)
		if qerr != nil {
			return nil, qerr
		}
		defer rows.Close()
		return processRows(rows, bound, maxRows, serverBounded)
	})
	if err != nil {
		if execCtx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			timedOut := errors.Is(execCtx.Err(), context.DeadlineExceeded) ||
				errors.Is(err, context.DeadlineExceeded)
			b.logger.Info("query interrupted",
				zap.String("query_id", queryID),
				zap.String("db_id", cfg.ID),
				zap.Bool("timed_out", timedOut),
				zap.Duration("elapsed", time.Since(start)))
			return nil, &apperrors.CancelledError{QueryID: queryID, Timeout: timedOut}
		}
		b.logger.Warn("query failed",
			zap.String("query_id", queryID),
			zap.String("db_id", cfg.ID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.QueryError{
			Dialect:    b.strategy.Dialect(),
			DatabaseID: cfg.ID,
			QueryID:    queryID,
			Err:        errors.New(b.strategy.FormatError(err)),
		}
	}

	result.ID = uuid.NewString()
	result.QueryID = queryID
	result.CreatedAt = time.Now().UTC()

	b.logger.Info("query executed",
		zap.String("query_id", queryID),
		zap.String("db_id", cfg.ID),
		zap.Int("row_count", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// GetSchema introspects the catalog under the dialect's retry policy and
// assembles the nested schema tree.
func (b *Base) GetSchema(ctx context.Context, cfg *models.DatabaseConfig) (*models.DatabaseSchema, error) {
	start := time.Now()

	pc, err := b.deps.Pool.Get(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer b.deps.Pool.Release(pc)

	handle, ok := pc.Conn().(*DBConn)
	if !ok {
		return nil, fmt.Errorf("pooled connection for %q does not carry a database handle", cfg.ID)
	}

	policy := b.deps.Retry
	policy.IsTransient = b.strategy.IsTransient

	schemas, err := retry.DoWithResult(ctx, policy, func() ([]models.SchemaInfo, error) {
		return b.strategy.ReadSchema(ctx, handle.DB(), cfg)
	})
	if err != nil {
		b.logger.Warn("schema introspection failed",
			zap.String("db_id", cfg.ID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.SchemaError{
			Dialect:    b.strategy.Dialect(),
			DatabaseID: cfg.ID,
			Err:        errors.New(b.strategy.FormatError(err)),
		}
	}

	b.logger.Info("schema introspected",
		zap.String("db_id", cfg.ID),
		zap.Int("schemas", len(schemas)),
		zap.Duration("elapsed", time.Since(start)))
	return &models.DatabaseSchema{
		DatabaseID:  cfg.ID,
		Schemas:     schemas,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// PoolCreator returns the dial hook the registry installs on the pool: it
// decrypts the credential, opens a single-connection handle from the
// strategy's DSN, and verifies it with a ping before handing it over.
func (b *Base) PoolCreator() pool.CreatorFunc {
	return func(ctx context.Context, cfg *models.DatabaseConfig) (pool.Conn, error) {
		password := ""
		if cfg.Connection.PasswordEncrypted != "" {
			if b.deps.Cipher == nil {
				return nil, fmt.Errorf("database %q has an encrypted password but no credentials key is configured", cfg.ID)
			}
			var err error
			password, err = b.deps.Cipher.Decrypt(cfg.Connection.PasswordEncrypted)
			if err != nil {
				return nil, fmt.Errorf("decrypt credentials for %q: %w", cfg.ID, err)
			}
		}

		dsn := b.strategy.DSN(cfg, password)
		db, err := sql.Open(b.strategy.DriverName(), dsn)
		if err != nil {
			return nil, err
		}

		handle := NewDBConn(db)
		if err := handle.Ping(ctx); err != nil {
			handle.Close()
			return nil, err
		}

		b.logger.Debug("connection established",
			zap.String("db_id", cfg.ID),
			zap.String("dsn", logging.SanitizeDSN(dsn)))
		return handle, nil
	}
}

// PoolValidator returns the health hook the registry installs on the pool.
func (b *Base) PoolValidator() pool.ValidatorFunc {
	return func(ctx context.Context, c pool.Conn) bool {
		return c.Ping(ctx) == nil
	}
}

var _ Connector = (*Base)(nil)
