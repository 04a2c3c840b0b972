package connector

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
	"github.com/dataglade/dataglade-connect/pkg/config"
	"github.com/dataglade/dataglade-connect/pkg/crypto"
	"github.com/dataglade/dataglade-connect/pkg/dialect"
	"github.com/dataglade/dataglade-connect/pkg/models"
	"github.com/dataglade/dataglade-connect/pkg/pool"
	"github.com/dataglade/dataglade-connect/pkg/retry"
	"github.com/dataglade/dataglade-connect/pkg/tracker"
)

// poolHookProvider is implemented by connectors that supply pool hooks for
// their dialect; the registry wires them in at registration time.
type poolHookProvider interface {
	PoolCreator() pool.CreatorFunc
	PoolValidator() pool.ValidatorFunc
}

// Registry maps dialects to their connectors and owns the shared pool
// manager, query tracker, and conversion cache they all run on. Construct
// one at startup and pass it by reference; there is no package-level
// instance.
type Registry struct {
	mu         sync.RWMutex
	connectors map[models.Dialect]Connector
	deps       *Deps
	logger     *zap.Logger
}

// Option customizes a Registry during construction.
type Option func(*Registry)

// WithRetryPolicy replaces the retry policy built from cfg.Retry.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Registry) {
		r.deps.Retry = p
	}
}

// WithDialectHandler replaces the conversion handler the registry builds by
// default.
func WithDialectHandler(h *dialect.Handler) Option {
	return func(r *Registry) {
		r.deps.Dialects = h
	}
}

// NewRegistry builds a registry with a fresh pool manager, tracker, dialect
// handler, and, when cfg carries a credentials key, the credential cipher.
func NewRegistry(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialects, err := dialect.NewHandler(dialect.DefaultCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("build dialect handler: %w", err)
	}

	deps := &Deps{
		Pool:     pool.NewManager(cfg.Pool, logger),
		Tracker:  tracker.New(logger),
		Dialects: dialects,
		Query:    cfg.Query,
		Retry: retry.Policy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			JitterFactor: cfg.Retry.JitterFactor,
		},
		Logger: logger,
	}
	if cfg.CredentialsKey != "" {
		cipher, err := crypto.NewCredentialCipher(cfg.CredentialsKey, cfg.CredentialsKeyPrevious...)
		if err != nil {
			return nil, fmt.Errorf("build credential cipher: %w", err)
		}
		deps.Cipher = cipher
	}

	r := &Registry{
		connectors: make(map[models.Dialect]Connector),
		deps:       deps,
		logger:     logger.Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RegisterConnector builds the dialect's connector over the shared
// dependencies and installs its pool hooks. Registering a dialect twice
// replaces the earlier connector.
func (r *Registry) RegisterConnector(d models.Dialect, ctor ConnectorConstructor) {
	c := ctor(r.deps)

	r.mu.Lock()
	if _, exists := r.connectors[d]; exists {
		r.logger.Warn("connector already registered, replacing", zap.String("dialect", d.String()))
	}
	r.connectors[d] = c
	r.mu.Unlock()

	if p, ok := c.(poolHookProvider); ok {
		r.deps.Pool.RegisterCreator(d, p.PoolCreator())
		r.deps.Pool.RegisterValidator(d, p.PoolValidator())
	}
	r.logger.Info("connector registered", zap.String("dialect", d.String()))
}

// SetPoolManager replaces the shared pool manager. Call it before
// registering connectors; hooks registered on the previous manager do not
// carry over.
func (r *Registry) SetPoolManager(pm *pool.Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.Pool = pm
}

// CreateConnector validates the database config and returns the connector
// for its dialect. A dialect with no registered connector in this build
// fails with *apperrors.UnsupportedDialectError.
func (r *Registry) CreateConnector(cfg *models.DatabaseConfig) (Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	r.mu.RLock()
	c, ok := r.connectors[cfg.Dialect]
	r.mu.RUnlock()
	if !ok {
		return nil, &apperrors.UnsupportedDialectError{Dialect: cfg.Dialect}
	}
	return c, nil
}

// RegisteredDialects lists the dialects with a connector, in registration
// order not guaranteed.
func (r *Registry) RegisteredDialects() []models.Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Dialect, 0, len(r.connectors))
	for d := range r.connectors {
		out = append(out, d)
	}
	return out
}

// CloseAllConnections closes every pooled connection and reports how many
// were closed.
func (r *Registry) CloseAllConnections() int {
	return r.deps.Pool.CloseAll()
}

// QueryTracker exposes the shared tracker (for cancellation endpoints and
// in-flight listings).
func (r *Registry) QueryTracker() *tracker.Tracker {
	return r.deps.Tracker
}

// PoolManager exposes the shared pool manager (for stats endpoints).
func (r *Registry) PoolManager() *pool.Manager {
	return r.deps.Pool
}

// Dialects exposes the shared conversion handler.
func (r *Registry) Dialects() *dialect.Handler {
	return r.deps.Dialects
}
