package hana

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// ReadSchema walks the SYS.* catalog views in four passes (tables, columns,
// primary keys, foreign keys) and assembles the schema tree. When
// cfg.DefaultSchema is set only that schema is introspected; the _SYS*
// technical schemas are excluded either way.
func (s *Strategy) ReadSchema(ctx context.Context, db *sql.DB, cfg *models.DatabaseConfig) ([]models.SchemaInfo, error) {
	b := connector.NewSchemaBuilder()

	if err := readTables(ctx, db, cfg.DefaultSchema, b); err != nil {
		return nil, err
	}
	if err := readColumns(ctx, db, cfg.DefaultSchema, b); err != nil {
		return nil, err
	}
	if err := readPrimaryKeys(ctx, db, cfg.DefaultSchema, b); err != nil {
		return nil, err
	}
	if err := readForeignKeys(ctx, db, cfg.DefaultSchema, b); err != nil {
		return nil, err
	}

	return b.Build(), nil
}

// schemaFilter appends either the single-schema restriction or the system
// schema exclusion.
func schemaFilter(query string, schema string) (string, []any) {
	if schema != "" {
		return query + " AND SCHEMA_NAME = ?", []any{schema}
	}
	return query + ` AND SCHEMA_NAME NOT LIKE '\_SYS%' ESCAPE '\' AND SCHEMA_NAME NOT IN ('SYS', 'SYSTEM')`, nil
}

func readTables(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SELECT SCHEMA_NAME, TABLE_NAME, COALESCE(COMMENTS, '')
	FROM SYS.TABLES
	WHERE IS_SYSTEM_TABLE = 'FALSE'`
	query, args := schemaFilter(query, schema)
	query += "\n\tORDER BY SCHEMA_NAME, TABLE_NAME"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, description string
		if err := rows.Scan(&schemaName, &tableName, &description); err != nil {
			return fmt.Errorf("scan table row: %w", err)
		}
		b.AddTable(schemaName, tableName, description)
	}
	return rows.Err()
}

func readColumns(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SELECT SCHEMA_NAME, TABLE_NAME, COLUMN_NAME, DATA_TYPE_NAME,
	       IS_NULLABLE, DEFAULT_VALUE, COALESCE(COMMENTS, '')
	FROM SYS.TABLE_COLUMNS
	WHERE 1 = 1`
	query, args := schemaFilter(query, schema)
	query += "\n\tORDER BY SCHEMA_NAME, TABLE_NAME, POSITION"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName, dataType, nullable, description string
		var def sql.NullString
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &nullable, &def, &description); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		col := models.ColumnInfo{
			Name:        columnName,
			Type:        strings.ToUpper(dataType),
			Nullable:    nullable == "TRUE",
			Description: description,
		}
		if def.Valid {
			col.Default = &def.String
		}
		b.AddColumn(schemaName, tableName, col)
	}
	return rows.Err()
}

func readPrimaryKeys(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SELECT SCHEMA_NAME, TABLE_NAME, COLUMN_NAME
	FROM SYS.CONSTRAINTS
	WHERE IS_PRIMARY_KEY = 'TRUE'`
	query, args := schemaFilter(query, schema)
	query += "\n\tORDER BY SCHEMA_NAME, TABLE_NAME, POSITION"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName string
		if err := rows.Scan(&schemaName, &tableName, &columnName); err != nil {
			return fmt.Errorf("scan primary key row: %w", err)
		}
		b.AddPrimaryKey(schemaName, tableName, columnName)
	}
	return rows.Err()
}

func readForeignKeys(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SELECT SCHEMA_NAME, TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME,
	       REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
	FROM SYS.REFERENTIAL_CONSTRAINTS
	WHERE 1 = 1`
	query, args := schemaFilter(query, schema)
	query += "\n\tORDER BY SCHEMA_NAME, TABLE_NAME, CONSTRAINT_NAME, POSITION"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, constraint, column, refTable, refColumn string
		if err := rows.Scan(&schemaName, &tableName, &constraint, &column, &refTable, &refColumn); err != nil {
			return fmt.Errorf("scan foreign key row: %w", err)
		}
		b.AddForeignKey(schemaName, tableName, constraint, column, refTable, refColumn)
	}
	return rows.Err()
}
