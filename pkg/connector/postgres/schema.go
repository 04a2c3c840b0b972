package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// ReadSchema walks information_schema in four passes (tables, columns,
// primary keys, foreign keys) and assembles the schema tree. When
// cfg.DefaultSchema is set only that schema is introspected; pg_catalog and
// information_schema are excluded either way.
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

// schemaFilter appends the schema restriction. expr is the SQL expression
// yielding the schema name in the surrounding query.
func schemaFilter(query, expr, schema string) (string, []any) {
	if schema != "" {
		return query + fmt.Sprintf(" AND %s = $1", expr), []any{schema}
	}
	return query + fmt.Sprintf(" AND %s NOT IN ('pg_catalog', 'information_schema')", expr), nil
}

func readTables(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SELECT
	    t.table_schema,
	    t.table_name,
	    COALESCE(obj_description(format('%I.%I', t.table_schema, t.table_name)::regclass), '') AS description
	FROM information_schema.tables t
	WHERE t.table_type = 'BASE TABLE'`
	query, args := schemaFilter(query, "t.table_schema", schema)
	query += "\n\tORDER BY t.table_schema, t.table_name"

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
	SELECT
	    c.table_schema,
	    c.table_name,
	    c.column_name,
	    c.data_type,
	    c.is_nullable,
	    c.column_default
	FROM information_schema.columns c
	JOIN information_schema.tables t
	    ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE t.table_type = 'BASE TABLE'`
	query, args := schemaFilter(query, "c.table_schema", schema)
	query += "\n\tORDER BY c.table_schema, c.table_name, c.ordinal_position"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName, dataType, nullable string
		var def sql.NullString
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &nullable, &def); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		col := models.ColumnInfo{
			Name:     columnName,
			Type:     strings.ToUpper(dataType),
			Nullable: nullable == "YES",
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
	SELECT
	    tc.table_schema,
	    tc.table_name,
	    kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	    ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY'`
	query, args := schemaFilter(query, "tc.table_schema", schema)
	query += "\n\tORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position"

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
	SELECT
	    tc.table_schema,
	    tc.table_name,
	    tc.constraint_name,
	    kcu.column_name,
	    ccu.table_name AS referenced_table,
	    ccu.column_name AS referenced_column
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	    ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
	JOIN information_schema.constraint_column_usage ccu
	    ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'`
	query, args := schemaFilter(query, "tc.table_schema", schema)
	query += "\n\tORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position"

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
