package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

// inventory is the on-disk shape of the database inventory file.
type inventory struct {
	Databases []models.DatabaseConfig `yaml:"databases"`
}

// LoadDatabases reads the database inventory from a YAML file of the form:
//
//	databases:
//	  - id: finance-dwh
//	    name: Finance Warehouse
//	    dialect: mssql
//	    host: dwh.internal
//	    port: 1433
//	    default_schema: dbo
//	    connection:
//	      username: reporting
//	      password_encrypted: <base64 AES-GCM ciphertext>
//	      options:
//	        encrypt: "true"
//
// Every entry is validated and ids must be unique.
func LoadDatabases(path string) ([]models.DatabaseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read database inventory %s: %w", path, err)
	}

	var inv inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse database inventory %s: %w", path, err)
	}
	if len(inv.Databases) == 0 {
		return nil, fmt.Errorf("database inventory %s lists no databases", path)
	}

	seen := make(map[string]bool, len(inv.Databases))
	for i := range inv.Databases {
		db := &inv.Databases[i]
		if err := db.Validate(); err != nil {
			return nil, fmt.Errorf("database inventory entry %d: %w", i, err)
		}
		if seen[db.ID] {
			return nil, fmt.Errorf("database inventory contains duplicate id %q", db.ID)
		}
		seen[db.ID] = true
	}

	return inv.Databases, nil
}
