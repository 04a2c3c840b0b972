// Package postgres implements the PostgreSQL dialect strategy: postgres://
// connection strings over the pgx stdlib driver, $N positional parameters,
// LIMIT-based row bounds, SQLSTATE-class retry classification, and catalog
// introspection over information_schema.
package postgres

import (
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// Strategy supplies the PostgreSQL pieces of the shared pipeline. It is
// stateless; one instance serves every PostgreSQL database.
type Strategy struct{}

// New builds the PostgreSQL connector over the shared dependencies.
func New(deps *connector.Deps) connector.Connector {
	return connector.NewBase(&Strategy{}, deps)
}

// Dialect reports the postgres dialect tag.
func (s *Strategy) Dialect() models.Dialect {
	return models.DialectPostgres
}

// DriverName names the pgx stdlib driver.
func (s *Strategy) DriverName() string {
	return "pgx"
}

// DSN builds a postgres:// connection string. The target database and SSL
// mode come from the config's options map: database (default postgres),
// sslmode (default require), connect_timeout (seconds).
func (s *Strategy) DSN(cfg *models.DatabaseConfig, password string) string {
	query := url.Values{}
	query.Add("sslmode", cfg.Option("sslmode", "require"))
	if timeout := cfg.Option("connect_timeout", ""); timeout != "" {
		query.Add("connect_timeout", timeout)
	}
	if cfg.DefaultSchema != "" {
		query.Add("search_path", cfg.DefaultSchema)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(cfg.Connection.Username),
		url.QueryEscape(password),
		cfg.Host,
		cfg.Port,
		url.PathEscape(cfg.Option("database", "postgres")),
		query.Encode(),
	)
}

// ParamStyle reports that PostgreSQL binds $N positional parameters.
func (s *Strategy) ParamStyle() connector.ParamStyle {
	return connector.ParamStyleDollar
}

// LimitQuery bounds the statement by appending LIMIT n.
func (s *Strategy) LimitQuery(query string, n int) string {
	return connector.AppendLimit(query, n)
}

var _ connector.Strategy = (*Strategy)(nil)
