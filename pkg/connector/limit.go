package connector

import (
	"fmt"
	"regexp"
	"strings"
)

// Server-side row bounds. These rewrites only bound what the server
// transfers; the result processor enforces the row cap client-side either
// way, so every guard below falls back to returning the query unchanged.

var (
	leadingSelectPattern = regexp.MustCompile(`(?is)^\s*\(*\s*SELECT\b`)
	leadingReadPattern   = regexp.MustCompile(`(?is)^\s*\(*\s*(SELECT|WITH)\b`)
	orderByPattern       = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	topClausePattern     = regexp.MustCompile(`(?i)\bTOP\s*\(?\s*\d+`)
	rowWindowPattern     = regexp.MustCompile(`(?i)\b(LIMIT|OFFSET|FETCH)\b|\bFOR\s+(UPDATE|SHARE)\b`)
)

// WrapTop bounds a SQL Server statement at n rows by wrapping it as a
// derived table: SELECT TOP (n) * FROM (query) AS _limited. Statements that
// are not plain SELECTs (CTEs cannot appear inside a derived table), or that
// carry an ORDER BY with no TOP (illegal inside a derived table), come back
// unchanged.
func WrapTop(query string, n int) string {
	if n <= 0 {
		return query
	}
	if !leadingSelectPattern.MatchString(query) {
		return query
	}
	if orderByPattern.MatchString(query) && !topClausePattern.MatchString(query) {
		return query
	}
	trimmed := strings.TrimRight(query, " \t\r\n;")
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", n, trimmed)
}

// AppendLimit bounds a statement at n rows by appending LIMIT n. Statements
// that are not SELECT or WITH, or that already steer their own row window
// (LIMIT, OFFSET, FETCH, FOR UPDATE/SHARE anywhere in the text), come back
// unchanged.
func AppendLimit(query string, n int) string {
	if n <= 0 {
		return query
	}
	if !leadingReadPattern.MatchString(query) {
		return query
	}
	if rowWindowPattern.MatchString(query) {
		return query
	}
	return strings.TrimRight(query, " \t\r\n;") + fmt.Sprintf(" LIMIT %d", n)
}
