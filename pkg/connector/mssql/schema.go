package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// ReadSchema walks the sys.* catalog views in four passes (tables, columns,
// primary keys, foreign keys) and assembles the schema tree. When
// cfg.DefaultSchema is set only that schema is introspected; system objects
// are excluded either way.
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

// schemaFilter appends the optional schema restriction. expr is the SQL
// expression yielding the schema name in the surrounding query.
func schemaFilter(query, expr, schema string) (string, []any) {
	if schema == "" {
		return query, nil
	}
	return query + fmt.Sprintf(" AND %s = @schema", expr), []any{sql.Named("schema", schema)}
}

func readTables(ctx context.Context, db *sql.DB, schema string, b *connector.SchemaBuilder) error {
	query := `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    ISNULL(CAST(ep.value AS NVARCHAR(4000)), '') AS description
	FROM sys.tables t
	LEFT JOIN sys.extended_properties ep
	    ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.name = 'MS_Description'
	WHERE t.is_ms_shipped = 0`
	query, args := schemaFilter(query, "SCHEMA_NAME(t.schema_id)", schema)
	query += "\n\tORDER BY table_schema, table_name"

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
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    c.name AS column_name,
	    tp.name AS data_type,
	    c.is_nullable,
	    dc.definition AS default_value
	FROM sys.tables t
	INNER JOIN sys.columns c ON c.object_id = t.object_id
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN sys.default_constraints dc
	    ON dc.parent_object_id = c.object_id AND dc.parent_column_id = c.column_id
	WHERE t.is_ms_shipped = 0`
	query, args := schemaFilter(query, "SCHEMA_NAME(t.schema_id)", schema)
	query += "\n\tORDER BY table_schema, table_name, c.column_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName, dataType string
		var nullable bool
		var def sql.NullString
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &nullable, &def); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		col := models.ColumnInfo{
			Name:     columnName,
			Type:     mapType(dataType),
			Nullable: nullable,
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
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    c.name AS column_name
	FROM sys.tables t
	INNER JOIN sys.indexes i ON i.object_id = t.object_id AND i.is_primary_key = 1
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE t.is_ms_shipped = 0`
	query, args := schemaFilter(query, "SCHEMA_NAME(t.schema_id)", schema)
	query += "\n\tORDER BY table_schema, table_name, ic.key_ordinal"

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
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(fk.schema_id) AS source_schema,
	    OBJECT_NAME(fk.parent_object_id) AS source_table,
	    fk.name AS constraint_name,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	WHERE fk.is_ms_shipped = 0`
	query, args := schemaFilter(query, "SCHEMA_NAME(fk.schema_id)", schema)
	query += "\n\tORDER BY source_schema, source_table, fk.name, fkc.constraint_column_id"

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
