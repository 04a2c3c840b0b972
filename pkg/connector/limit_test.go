package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapTop(t *testing.T) {
	tests := []struct {
		name  string
		query string
		n     int
		want  string
	}{
		{
			name:  "plain select is wrapped",
			query: "SELECT * FROM sys.objects",
			n:     5,
			want:  "SELECT TOP (5) * FROM (SELECT * FROM sys.objects) AS _limited",
		},
		{
			name:  "trailing semicolon is trimmed before wrapping",
			query: "SELECT 1;",
			n:     2,
			want:  "SELECT TOP (2) * FROM (SELECT 1) AS _limited",
		},
		{
			name:  "order by with top stays legal inside the wrap",
			query: "SELECT TOP 10 id FROM t ORDER BY id",
			n:     5,
			want:  "SELECT TOP (5) * FROM (SELECT TOP 10 id FROM t ORDER BY id) AS _limited",
		},
		{
			name:  "order by without top comes back unchanged",
			query: "SELECT id FROM t ORDER BY id",
			n:     5,
			want:  "SELECT id FROM t ORDER BY id",
		},
		{
			name:  "cte comes back unchanged",
			query: "WITH c AS (SELECT 1 AS n) SELECT * FROM c",
			n:     5,
			want:  "WITH c AS (SELECT 1 AS n) SELECT * FROM c",
		},
		{
			name:  "zero bound is a no-op",
			query: "SELECT 1",
			n:     0,
			want:  "SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapTop(tt.query, tt.n))
		})
	}
}

func TestAppendLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		n     int
		want  string
	}{
		{
			name:  "plain select gets a limit",
			query: "SELECT * FROM t",
			n:     5,
			want:  "SELECT * FROM t LIMIT 5",
		},
		{
			name:  "cte gets a limit",
			query: "WITH c AS (SELECT 1) SELECT * FROM c",
			n:     5,
			want:  "WITH c AS (SELECT 1) SELECT * FROM c LIMIT 5",
		},
		{
			name:  "existing limit wins",
			query: "SELECT * FROM t LIMIT 3",
			n:     5,
			want:  "SELECT * FROM t LIMIT 3",
		},
		{
			name:  "offset steers its own window",
			query: "SELECT * FROM t OFFSET 10",
			n:     5,
			want:  "SELECT * FROM t OFFSET 10",
		},
		{
			name:  "trailing semicolon is trimmed",
			query: "SELECT 1;",
			n:     2,
			want:  "SELECT 1 LIMIT 2",
		},
		{
			name:  "non-select comes back unchanged",
			query: "SHOW search_path",
			n:     5,
			want:  "SHOW search_path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AppendLimit(tt.query, tt.n))
		})
	}
}
