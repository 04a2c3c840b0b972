package dialect

import (
	"regexp"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

var (
	selectStarPattern   = regexp.MustCompile(`(?i)\bSELECT\s+(?:DISTINCT\s+)?\*`)
	leadingWildcardLike = regexp.MustCompile(`(?i)\bI?LIKE\s+N?'%`)
	fromClausePattern   = regexp.MustCompile(`(?i)\bFROM\b`)
	whereClausePattern  = regexp.MustCompile(`(?i)\bWHERE\b`)
	topBoundPattern     = regexp.MustCompile(`(?i)\bTOP\s*\(?\s*\d+`)
	limitBoundPattern   = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
)

// SuggestOptimizations returns advisory notes about constructs that tend
// to perform poorly. Suggestions are heuristic and dialect-aware; an
// empty slice means nothing stood out.
func (h *Handler) SuggestOptimizations(sql string, d models.Dialect) []string {
	var suggestions []string

	if selectStarPattern.MatchString(sql) {
		suggestions = append(suggestions, "SELECT * fetches every column; list only the columns you need")
	}

	if leadingWildcardLike.MatchString(sql) {
		suggestions = append(suggestions, "leading-wildcard LIKE patterns cannot use an index")
	}

	if !topBoundPattern.MatchString(sql) && !limitBoundPattern.MatchString(sql) {
		if d == models.DialectMSSQL {
			suggestions = append(suggestions, "unbounded result set; add TOP (n) to cap the rows returned")
		} else {
			suggestions = append(suggestions, "unbounded result set; add LIMIT n to cap the rows returned")
		}
	}

	if d == models.DialectMSSQL && nolockHintPattern.MatchString(sql) {
		suggestions = append(suggestions, "WITH (NOLOCK) reads uncommitted data; consider snapshot isolation instead")
	}

	if fromClausePattern.MatchString(sql) &&
		!whereClausePattern.MatchString(sql) &&
		!fromDummyPattern.MatchString(sql) {
		suggestions = append(suggestions, "no WHERE clause; the statement scans the whole table")
	}

	return suggestions
}
