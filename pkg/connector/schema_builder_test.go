package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

func TestSchemaBuilder(t *testing.T) {
	b := NewSchemaBuilder()

	b.AddTable("dbo", "orders", "customer orders")
	b.AddTable("dbo", "customers", "")
	b.AddTable("audit", "events", "")

	b.AddColumn("dbo", "orders", models.ColumnInfo{Name: "id", Type: "INTEGER"})
	b.AddColumn("dbo", "orders", models.ColumnInfo{Name: "customer_id", Type: "INTEGER"})
	b.AddColumn("dbo", "customers", models.ColumnInfo{Name: "id", Type: "INTEGER"})

	b.AddPrimaryKey("dbo", "orders", "id")
	b.AddPrimaryKey("dbo", "customers", "id")

	b.AddForeignKey("dbo", "orders", "fk_orders_customers", "customer_id", "customers", "id")

	schemas := b.Build()
	require.Len(t, schemas, 2)

	// Schemas and tables keep first-appearance order.
	assert.Equal(t, "dbo", schemas[0].Name)
	assert.Equal(t, "audit", schemas[1].Name)
	require.Len(t, schemas[0].Tables, 2)
	assert.Equal(t, "orders", schemas[0].Tables[0].Name)
	assert.Equal(t, "customers", schemas[0].Tables[1].Name)

	orders := schemas[0].Tables[0]
	assert.Equal(t, "customer orders", orders.Description)
	assert.Equal(t, []string{"id"}, orders.PrimaryKey)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, []string{"customer_id"}, orders.ForeignKeys[0].Columns)
	assert.Equal(t, "customers", orders.ForeignKeys[0].ReferencedTable)
}

func TestSchemaBuilder_CompositeForeignKey(t *testing.T) {
	b := NewSchemaBuilder()
	b.AddTable("public", "line_items", "")
	b.AddForeignKey("public", "line_items", "fk_li", "order_id", "orders", "id")
	b.AddForeignKey("public", "line_items", "fk_li", "order_rev", "orders", "rev")

	schemas := b.Build()
	require.Len(t, schemas, 1)
	fks := schemas[0].Tables[0].ForeignKeys
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"order_id", "order_rev"}, fks[0].Columns)
	assert.Equal(t, []string{"id", "rev"}, fks[0].ReferencedColumns)
}

func TestSchemaBuilder_LatePassCreatesTable(t *testing.T) {
	b := NewSchemaBuilder()
	// A column pass referencing a table the table pass never saw still
	// produces an entry.
	b.AddColumn("public", "ghosts", models.ColumnInfo{Name: "id", Type: "INTEGER"})

	schemas := b.Build()
	require.Len(t, schemas, 1)
	require.Len(t, schemas[0].Tables, 1)
	assert.Equal(t, "ghosts", schemas[0].Tables[0].Name)
	assert.Empty(t, schemas[0].Tables[0].Description)
}

func TestSchemaBuilder_Empty(t *testing.T) {
	assert.Empty(t, NewSchemaBuilder().Build())
}
