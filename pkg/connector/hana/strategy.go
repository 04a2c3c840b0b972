// Package hana implements the SAP HANA dialect strategy: hdb:// connection
// strings, positional ? parameters, LIMIT-based row bounds, the server's
// error-code table for retry classification and message formatting, and
// catalog introspection over the SYS.* views.
package hana

import (
	"fmt"
	"net/url"

	_ "github.com/SAP/go-hdb/driver" // SAP HANA driver

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// Strategy supplies the HANA pieces of the shared pipeline. It is
// stateless; one instance serves every HANA database.
type Strategy struct{}

// New builds the HANA connector over the shared dependencies.
func New(deps *connector.Deps) connector.Connector {
	return connector.NewBase(&Strategy{}, deps)
}

// Dialect reports the hana dialect tag.
func (s *Strategy) Dialect() models.Dialect {
	return models.DialectHANA
}

// DriverName names the go-hdb driver.
func (s *Strategy) DriverName() string {
	return "hdb"
}

// DSN builds an hdb:// connection string. cfg.DefaultSchema becomes the
// session's default schema; TLS options come from the config's options map:
// tls_server_name, tls_insecure_skip_verify, tls_root_ca_file.
func (s *Strategy) DSN(cfg *models.DatabaseConfig, password string) string {
	query := url.Values{}
	if cfg.DefaultSchema != "" {
		query.Add("defaultSchema", cfg.DefaultSchema)
	}
	if name := cfg.Option("tls_server_name", ""); name != "" {
		query.Add("TLSServerName", name)
	}
	if cfg.Option("tls_insecure_skip_verify", "") == "true" {
		query.Add("TLSInsecureSkipVerify", "true")
	}
	if ca := cfg.Option("tls_root_ca_file", ""); ca != "" {
		query.Add("TLSRootCAFile", ca)
	}
	if timeout := cfg.Option("connect_timeout", ""); timeout != "" {
		query.Add("timeout", timeout)
	}

	dsn := fmt.Sprintf("hdb://%s:%s@%s:%d",
		url.QueryEscape(cfg.Connection.Username),
		url.QueryEscape(password),
		cfg.Host,
		cfg.Port,
	)
	if encoded := query.Encode(); encoded != "" {
		dsn += "?" + encoded
	}
	return dsn
}

// ParamStyle reports that go-hdb binds positional ? parameters.
func (s *Strategy) ParamStyle() connector.ParamStyle {
	return connector.ParamStyleQuestion
}

// LimitQuery bounds the statement by appending LIMIT n.
func (s *Strategy) LimitQuery(query string, n int) string {
	return connector.AppendLimit(query, n)
}

var _ connector.Strategy = (*Strategy)(nil)
