package models

import (
	"time"
)

// Column describes one column of a query result: the name reported by the
// driver and the driver's raw type tag (e.g. "NVARCHAR", "INTEGER").
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the uniform envelope every connector returns regardless of
// dialect. Rows are ordered value lists matching Columns positionally.
// RowCount always equals len(Rows); when Truncated is set, TotalRowCount (if
// the driver allowed a drain count) reports how many rows the statement
// actually produced.
type QueryResult struct {
	ID            string    `json:"id"`
	QueryID       string    `json:"query_id"`
	Columns       []Column  `json:"columns"`
	Rows          [][]any   `json:"rows"`
	RowCount      int       `json:"row_count"`
	Truncated     bool      `json:"truncated"`
	TotalRowCount *int      `json:"total_row_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
