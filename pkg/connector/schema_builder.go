package connector

import (
	"github.com/dataglade/dataglade-connect/pkg/models"
)

type tableKey struct {
	schema string
	table  string
}

// SchemaBuilder accumulates catalog rows in arrival order and assembles the
// nested DatabaseSchema tree. The dialect strategies feed it from their
// table, column, primary-key, and foreign-key catalog passes; the catalog
// queries order their rows, and the builder preserves that order.
type SchemaBuilder struct {
	order   []tableKey
	tables  map[tableKey]*models.TableInfo
	fkOrder map[tableKey][]string
	fks     map[tableKey]map[string]*models.ForeignKeyInfo
}

// NewSchemaBuilder returns an empty builder.
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{
		tables:  make(map[tableKey]*models.TableInfo),
		fkOrder: make(map[tableKey][]string),
		fks:     make(map[tableKey]map[string]*models.ForeignKeyInfo),
	}
}

// table returns the entry for (schema, table), creating it on first sight.
// Later passes may reference tables the first pass missed when the catalog
// changes between queries; those get an entry with no description.
func (b *SchemaBuilder) table(schema, table string) *models.TableInfo {
	key := tableKey{schema: schema, table: table}
	if t, ok := b.tables[key]; ok {
		return t
	}
	t := &models.TableInfo{Name: table}
	b.tables[key] = t
	b.order = append(b.order, key)
	return t
}

// AddTable records a table with its description.
func (b *SchemaBuilder) AddTable(schema, table, description string) {
	t := b.table(schema, table)
	if description != "" {
		t.Description = description
	}
}

// AddColumn appends a column to its table.
func (b *SchemaBuilder) AddColumn(schema, table string, col models.ColumnInfo) {
	t := b.table(schema, table)
	t.Columns = append(t.Columns, col)
}

// AddPrimaryKey appends a column to the table's primary key, in call order.
func (b *SchemaBuilder) AddPrimaryKey(schema, table, column string) {
	t := b.table(schema, table)
	t.PrimaryKey = append(t.PrimaryKey, column)
}

// AddForeignKey records one column pair of a foreign key constraint. Pairs
// sharing a constraint name on the same table merge into one ForeignKeyInfo
// with parallel column lists.
func (b *SchemaBuilder) AddForeignKey(schema, table, constraint, column, refTable, refColumn string) {
	b.table(schema, table)
	key := tableKey{schema: schema, table: table}

	byName, ok := b.fks[key]
	if !ok {
		byName = make(map[string]*models.ForeignKeyInfo)
		b.fks[key] = byName
	}
	fk, ok := byName[constraint]
	if !ok {
		fk = &models.ForeignKeyInfo{ReferencedTable: refTable}
		byName[constraint] = fk
		b.fkOrder[key] = append(b.fkOrder[key], constraint)
	}
	fk.Columns = append(fk.Columns, column)
	fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
}

// Build assembles the accumulated rows into schema groups, tables grouped
// under their schema in first-appearance order.
func (b *SchemaBuilder) Build() []models.SchemaInfo {
	var schemas []models.SchemaInfo
	index := make(map[string]int)

	for _, key := range b.order {
		t := b.tables[key]
		for _, name := range b.fkOrder[key] {
			t.ForeignKeys = append(t.ForeignKeys, *b.fks[key][name])
		}

		i, ok := index[key.schema]
		if !ok {
			schemas = append(schemas, models.SchemaInfo{Name: key.schema})
			i = len(schemas) - 1
			index[key.schema] = i
		}
		schemas[i].Tables = append(schemas[i].Tables, *t)
	}

	return schemas
}
