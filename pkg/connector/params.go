package connector

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
)

// ParamStyle selects how {{name}} placeholders are rendered for a driver.
type ParamStyle int

const (
	// ParamStyleNamed renders @p1, @p2, ... with sql.Named arguments
	// (SQL Server).
	ParamStyleNamed ParamStyle = iota
	// ParamStyleQuestion renders positional ? placeholders (HANA).
	ParamStyleQuestion
	// ParamStyleDollar renders $1, $2, ... positional placeholders
	// (Postgres).
	ParamStyleDollar
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ExtractPlaceholders returns the distinct {{name}} placeholder names in
// first-appearance order.
func ExtractPlaceholders(query string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(query, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// BindPlaceholders rewrites every {{name}} placeholder into the driver's
// binding style and returns the rewritten SQL with the argument list to pass
// alongside it. Each distinct name gets one ordinal in first-appearance
// order; a repeated name reuses its ordinal for the named and dollar styles
// and repeats the argument for the purely positional question style. A
// placeholder with no entry in params fails with apperrors.ErrMissingParameter.
// Entries in params that the query never references are ignored.
func BindPlaceholders(query string, params map[string]any, style ParamStyle) (string, []any, error) {
	names := ExtractPlaceholders(query)
	if len(names) == 0 {
		return query, nil, nil
	}

	for _, name := range names {
		if _, ok := params[name]; !ok {
			return "", nil, fmt.Errorf("%w: %q", apperrors.ErrMissingParameter, name)
		}
	}

	if style == ParamStyleQuestion {
		var args []any
		bound := placeholderPattern.ReplaceAllStringFunc(query, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			args = append(args, params[name])
			return "?"
		})
		return bound, args, nil
	}

	ordinals := make(map[string]int, len(names))
	args := make([]any, 0, len(names))
	for i, name := range names {
		ordinals[name] = i + 1
		if style == ParamStyleNamed {
			args = append(args, sql.Named(fmt.Sprintf("p%d", i+1), params[name]))
		} else {
			args = append(args, params[name])
		}
	}

	bound := placeholderPattern.ReplaceAllStringFunc(query, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if style == ParamStyleNamed {
			return fmt.Sprintf("@p%d", ordinals[name])
		}
		return fmt.Sprintf("$%d", ordinals[name])
	})
	return bound, args, nil
}
