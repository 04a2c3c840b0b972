package models

import (
	"time"
)

// ColumnInfo describes one column discovered during schema introspection.
type ColumnInfo struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Nullable    bool    `json:"nullable"`
	Default     *string `json:"default,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ForeignKeyInfo describes one foreign key constraint on a table. Columns and
// ReferencedColumns are parallel, ordered by constraint position.
type ForeignKeyInfo struct {
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"reference_table"`
	ReferencedColumns []string `json:"reference_columns"`
}

// TableInfo describes one table with its columns and key constraints.
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  []string         `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
	Description string           `json:"description,omitempty"`
}

// SchemaInfo groups the tables of one database schema (namespace).
type SchemaInfo struct {
	Name   string      `json:"name"`
	Tables []TableInfo `json:"tables"`
}

// DatabaseSchema is the nested schema tree assembled by GetSchema from the
// dialect's catalog views.
type DatabaseSchema struct {
	DatabaseID  string       `json:"db_id"`
	Schemas     []SchemaInfo `json:"schemas"`
	LastUpdated time.Time    `json:"last_updated"`
}
