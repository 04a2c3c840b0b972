package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() DatabaseConfig {
	return DatabaseConfig{
		ID:            "finance-dwh",
		Name:          "Finance Warehouse",
		Dialect:       DialectMSSQL,
		Host:          "dwh.internal",
		Port:          1433,
		DefaultSchema: "dbo",
		Connection: ConnectionConfig{
			Username:          "reporting",
			PasswordEncrypted: "ZW5jcnlwdGVk",
			Options:           map[string]string{"encrypt": "true"},
		},
	}
}

func TestDatabaseConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*DatabaseConfig)
		wantErr string
	}{
		{
			name:    "missing id",
			mutate:  func(c *DatabaseConfig) { c.ID = "" },
			wantErr: "database id is required",
		},
		{
			name:    "missing dialect",
			mutate:  func(c *DatabaseConfig) { c.Dialect = "" },
			wantErr: "dialect is required",
		},
		{
			name:    "missing host",
			mutate:  func(c *DatabaseConfig) { c.Host = "" },
			wantErr: "host is required",
		},
		{
			name:    "zero port",
			mutate:  func(c *DatabaseConfig) { c.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "negative port",
			mutate:  func(c *DatabaseConfig) { c.Port = -1 },
			wantErr: "invalid port",
		},
		{
			name:    "port above range",
			mutate:  func(c *DatabaseConfig) { c.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "missing username",
			mutate:  func(c *DatabaseConfig) { c.Connection.Username = "" },
			wantErr: "username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfigOption(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "true", cfg.Option("encrypt", "false"))
	assert.Equal(t, "30", cfg.Option("dial timeout", "30"), "absent option falls back to default")

	cfg.Connection.Options = nil
	assert.Equal(t, "false", cfg.Option("encrypt", "false"), "nil options map falls back to default")
}
