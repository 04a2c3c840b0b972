// Package mssql implements the SQL Server dialect strategy: sqlserver://
// connection strings, @pN named parameters, TOP-based row bounds, the
// driver's error-number table for retry classification and message
// formatting, and catalog introspection over the sys.* views.
package mssql

import (
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// Strategy supplies the SQL Server pieces of the shared pipeline. It is
// stateless; one instance serves every SQL Server database.
type Strategy struct{}

// New builds the SQL Server connector over the shared dependencies.
func New(deps *connector.Deps) connector.Connector {
	return connector.NewBase(&Strategy{}, deps)
}

// Dialect reports the mssql dialect tag.
func (s *Strategy) Dialect() models.Dialect {
	return models.DialectMSSQL
}

// DriverName names the go-mssqldb driver.
func (s *Strategy) DriverName() string {
	return "sqlserver"
}

// DSN builds a sqlserver:// connection string. Driver options come from the
// config's options map: database, encrypt (default true),
// trust_server_certificate, connect_timeout (seconds), app_name.
func (s *Strategy) DSN(cfg *models.DatabaseConfig, password string) string {
	query := url.Values{}
	if db := cfg.Option("database", ""); db != "" {
		query.Add("database", db)
	}
	query.Add("encrypt", cfg.Option("encrypt", "true"))
	if cfg.Option("trust_server_certificate", "") == "true" {
		query.Add("TrustServerCertificate", "true")
	}
	if timeout := cfg.Option("connect_timeout", ""); timeout != "" {
		query.Add("connection timeout", timeout)
	}
	if app := cfg.Option("app_name", ""); app != "" {
		query.Add("app name", app)
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Connection.Username),
		url.QueryEscape(password),
		cfg.Host,
		cfg.Port,
		query.Encode(),
	)
}

// ParamStyle reports that SQL Server binds @pN named parameters.
func (s *Strategy) ParamStyle() connector.ParamStyle {
	return connector.ParamStyleNamed
}

// LimitQuery bounds the statement with a TOP (n) derived-table wrap.
func (s *Strategy) LimitQuery(query string, n int) string {
	return connector.WrapTop(query, n)
}

var _ connector.Strategy = (*Strategy)(nil)
