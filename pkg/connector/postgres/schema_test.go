package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

func TestReadSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`information_schema.tables t`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "description"}).
			AddRow("public", "orders", "customer orders").
			AddRow("public", "customers", ""))

	mock.ExpectQuery(`information_schema.columns c`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("public", "orders", "id", "integer", "NO", "nextval('orders_id_seq')").
			AddRow("public", "orders", "customer_id", "integer", "NO", nil).
			AddRow("public", "customers", "id", "integer", "NO", nil).
			AddRow("public", "customers", "email", "character varying", "YES", nil))

	mock.ExpectQuery(`constraint_type = 'PRIMARY KEY'`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}).
			AddRow("public", "orders", "id").
			AddRow("public", "customers", "id"))

	mock.ExpectQuery(`constraint_type = 'FOREIGN KEY'`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "constraint_name", "column_name", "referenced_table", "referenced_column"}).
			AddRow("public", "orders", "orders_customer_id_fkey", "customer_id", "customers", "id"))

	cfg := &models.DatabaseConfig{ID: "reporting", Dialect: models.DialectPostgres}
	schemas, err := (&Strategy{}).ReadSchema(context.Background(), db, cfg)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, schemas, 1)
	assert.Equal(t, "public", schemas[0].Name)
	require.Len(t, schemas[0].Tables, 2)

	orders := schemas[0].Tables[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "customer orders", orders.Description)
	require.Len(t, orders.Columns, 2)
	assert.Equal(t, "INTEGER", orders.Columns[0].Type)
	assert.False(t, orders.Columns[0].Nullable)
	require.NotNil(t, orders.Columns[0].Default)
	assert.Equal(t, []string{"id"}, orders.PrimaryKey)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].ReferencedTable)

	customers := schemas[0].Tables[1]
	assert.Equal(t, "CHARACTER VARYING", customers.Columns[1].Type)
	assert.True(t, customers.Columns[1].Nullable)
}

func TestReadSchema_DefaultSchemaFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`information_schema.tables t`).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "description"}))
	mock.ExpectQuery(`information_schema.columns c`).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type", "is_nullable", "column_default"}))
	mock.ExpectQuery(`constraint_type = 'PRIMARY KEY'`).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}))
	mock.ExpectQuery(`constraint_type = 'FOREIGN KEY'`).WithArgs("sales").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "constraint_name", "column_name", "referenced_table", "referenced_column"}))

	cfg := &models.DatabaseConfig{ID: "reporting", Dialect: models.DialectPostgres, DefaultSchema: "sales"}
	schemas, err := (&Strategy{}).ReadSchema(context.Background(), db, cfg)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, schemas)
}
