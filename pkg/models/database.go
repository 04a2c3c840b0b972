package models

import (
	"fmt"
)

// Dialect identifies a SQL dialect handled by a registered connector.
type Dialect string

const (
	DialectMSSQL    Dialect = "mssql"
	DialectHANA     Dialect = "hana"
	DialectPostgres Dialect = "postgres"
)

// String returns the dialect tag as stored in configuration.
func (d Dialect) String() string {
	return string(d)
}

// ConnectionConfig carries the credentials and driver options for one database.
// PasswordEncrypted holds the AES-GCM ciphertext produced by pkg/crypto; the
// plaintext exists only transiently while a connection is being dialed.
type ConnectionConfig struct {
	Username          string            `json:"username" yaml:"username"`
	PasswordEncrypted string            `json:"password_encrypted" yaml:"password_encrypted"`
	Options           map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// DatabaseConfig describes one reachable database. It is immutable once
// constructed: connectors and the pool manager only ever read it, and the ID
// doubles as the pool key.
type DatabaseConfig struct {
	ID            string           `json:"id" yaml:"id"`
	Name          string           `json:"name" yaml:"name"`
	Dialect       Dialect          `json:"dialect" yaml:"dialect"`
	Host          string           `json:"host" yaml:"host"`
	Port          int              `json:"port" yaml:"port"`
	DefaultSchema string           `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
	Connection    ConnectionConfig `json:"connection" yaml:"connection"`
}

// Validate checks that the config is complete enough to dial.
func (c *DatabaseConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("database id is required")
	}
	if c.Dialect == "" {
		return fmt.Errorf("dialect is required for database %q", c.ID)
	}
	if c.Host == "" {
		return fmt.Errorf("host is required for database %q", c.ID)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d for database %q (must be 1-65535)", c.Port, c.ID)
	}
	if c.Connection.Username == "" {
		return fmt.Errorf("username is required for database %q", c.ID)
	}
	return nil
}

// Option returns a driver option by name, with a fallback default.
func (c *DatabaseConfig) Option(name, def string) string {
	if v, ok := c.Connection.Options[name]; ok && v != "" {
		return v
	}
	return def
}
