package connector

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/logging"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

// processRows streams a driver cursor into the uniform result envelope.
// Column metadata (name plus the driver's raw type tag) comes first; rows are
// scanned positionally, with []byte values of textual types converted to
// string. When maxRows > 0 and the cursor holds more rows, materialization
// stops at the cap, Truncated is set, and the remainder is drained purely to
// count it into TotalRowCount; a failed drain leaves the count unset, which
// is not an error. serverBounded means the statement itself was rewritten
// with a row bound, so the cursor no longer reflects how many rows the query
// produces; the drain count would be the rewrite's bound, not the total, and
// TotalRowCount stays unset. RowCount always equals len(Rows). The id, query
// id, and timestamp fields are stamped by the caller.
func processRows(rows *sql.Rows, query string, maxRows int, serverBounded bool) (*models.QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns for %s: %w", logging.SanitizeQuery(query), err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types for %s: %w", logging.SanitizeQuery(query), err)
	}

	columns := make([]models.Column, len(columnNames))
	for i, name := range columnNames {
		columns[i] = models.Column{
			Name: name,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	out := make([][]any, 0)
	truncated := false
	var total *int

	for rows.Next() {
		if maxRows > 0 && len(out) >= maxRows {
			truncated = true
			if serverBounded {
				break
			}
			// Drain without scanning: count the row Next just landed on plus
			// whatever follows, so TotalRowCount can report it.
			n := len(out) + 1
			for rows.Next() {
				n++
			}
			if rows.Err() == nil {
				total = &n
			}
			break
		}

		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok && isTextualType(columnTypes[i].DatabaseTypeName()) {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}

	if !truncated {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
	}

	return &models.QueryResult{
		Columns:       columns,
		Rows:          out,
		RowCount:      len(out),
		Truncated:     truncated,
		TotalRowCount: total,
	}, nil
}

// isTextualType reports whether a driver type tag names a type whose []byte
// scan value is UTF-8 text rather than true binary. Covers the character,
// decimal, and document types of all three drivers; anything else stays
// []byte.
func isTextualType(driverType string) bool {
	switch strings.ToUpper(driverType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT",
		"CLOB", "NCLOB", "STRING", "SHORTTEXT", "ALPHANUM",
		"BPCHAR", "NAME", "UUID", "UNIQUEIDENTIFIER",
		"JSON", "JSONB", "XML",
		"DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
