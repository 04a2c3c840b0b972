// dataglade-connect diagnostic runner. Exercises a connector against one
// entry of the database inventory without any serving layer in front.
//
// Usage: go run -tags all_dialects . -mode test|query|schema -db <id> [flags]
//
// Flags:
//
//	-mode       test, query, or schema (required)
//	-db         database id from the inventory (required)
//	-databases  inventory YAML path (default: databases.yaml)
//	-config     framework config path (default: config.yaml)
//	-sql        statement to run (query mode)
//	-params     statement parameters as a JSON object (query mode)
//	-max-rows   row cap override (query mode)
//	-timeout    per-query timeout override (query mode)
//
// The credential key comes from DGC_CREDENTIALS_KEY. Results print as JSON
// on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dataglade/dataglade-connect/pkg/config"
	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/connector/drivers"
	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

func main() {
	mode := flag.String("mode", "", "test, query, or schema")
	dbID := flag.String("db", "", "database id from the inventory")
	databasesPath := flag.String("databases", "databases.yaml", "inventory YAML path")
	configPath := flag.String("config", "config.yaml", "framework config path")
	sqlText := flag.String("sql", "", "statement to run (query mode)")
	paramsJSON := flag.String("params", "", "statement parameters as a JSON object")
	maxRows := flag.Int("max-rows", 0, "row cap override (query mode)")
	timeout := flag.Duration("timeout", 0, "per-query timeout override (query mode)")
	flag.Parse()

	if *mode == "" || *dbID == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -mode test|query|schema -db <id> [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*mode, *dbID, *databasesPath, *configPath, *sqlText, *paramsJSON, *maxRows, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(mode, dbID, databasesPath, configPath, sqlText, paramsJSON string, maxRows int, timeout time.Duration) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	inventory, err := config.LoadDatabases(databasesPath)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	dbCfg := findDatabase(inventory, dbID)
	if dbCfg == nil {
		return fmt.Errorf("database %q not found in %s", dbID, databasesPath)
	}

	registry, err := connector.NewRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	defer registry.CloseAllConnections()

	registered := drivers.RegisterAll(registry)
	logger.Info("dialects registered", zap.Int("count", len(registered)))

	c, err := registry.CreateConnector(dbCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch mode {
	case "test":
		ok, msg := c.TestConnection(ctx, dbCfg)
		return printJSON(map[string]any{"ok": ok, "message": msg})

	case "query":
		if sqlText == "" {
			return fmt.Errorf("query mode requires -sql")
		}
		var params map[string]any
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
				return fmt.Errorf("parse -params: %w", err)
			}
		}
		result, err := c.ExecuteQuery(ctx, dbCfg, sqlText, params, connector.QueryOptions{
			MaxRows: maxRows,
			Timeout: timeout,
		})
		if err != nil {
			return err
		}
		return printJSON(result)

	case "schema":
		schema, err := c.GetSchema(ctx, dbCfg)
		if err != nil {
			return err
		}
		return printJSON(schema)

	default:
		return fmt.Errorf("unknown mode %q (want test, query, or schema)", mode)
	}
}

func findDatabase(inventory []models.DatabaseConfig, id string) *models.DatabaseConfig {
	for i := range inventory {
		if inventory[i].ID == id {
			return &inventory[i]
		}
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
