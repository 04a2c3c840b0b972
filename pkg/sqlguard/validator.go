// Package sqlguard classifies SQL statements before they reach a driver:
// read-only keyword classification, multiple-statement detection, and
// injection-heuristic scanning. It is deliberately not a SQL parser; the
// checks are regex and keyword based, so false positives (valid read-only SQL
// using an allowed keyword in an unusual position) and false negatives are
// possible. Statements it cannot classify are rejected.
package sqlguard

import (
	"regexp"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
)

// readOnlyKeywords are the leading keywords that mark a statement as safe to
// execute. Anything else is rejected unless it is a WITH whose terminal verb
// is read-only.
var readOnlyKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"HELP":     true,
}

// mutationKeywords are rejected outright, with the keyword named in the
// reason so callers can surface it.
var mutationKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"CREATE":   true,
	"ALTER":    true,
	"TRUNCATE": true,
	"RENAME":   true,
	"REPLACE":  true,
	"MERGE":    true,
	"UPSERT":   true,
	"GRANT":    true,
	"REVOKE":   true,
	"EXEC":     true,
	"EXECUTE":  true,
	"CALL":     true,
}

// cteReadOnlyPattern accepts a WITH statement whose body closes and hands off
// to a read-only verb. Heuristic: it looks for any closing parenthesis
// followed by one of the allowed verbs.
var cteReadOnlyPattern = regexp.MustCompile(`(?is)\)\s*(SELECT|SHOW|DESCRIBE|DESC|EXPLAIN|HELP)\b`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Validate checks a statement for execution safety and returns the normalized
// form (comments preserved, trailing semicolon stripped) alongside nil, or a
// *apperrors.ValidationError describing the rejection.
//
// Order: empty check, multiple-statement check, keyword classification,
// injection-heuristic scan. The scan runs even for statements that classified
// as read-only.
func Validate(sqlText string) (string, error) {
	stripped := collapseWhitespace(StripComments(sqlText))
	if stripped == "" {
		return "", &apperrors.ValidationError{Reason: "empty query"}
	}

	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlText))
	if hasSemicolonOutsideStrings(collapseWhitespace(StripComments(normalized))) {
		return "", &apperrors.ValidationError{Reason: "multiple statements are not allowed"}
	}

	keyword := firstKeyword(stripped)
	switch {
	case readOnlyKeywords[keyword]:
		// allowed
	case keyword == "WITH":
		if !cteReadOnlyPattern.MatchString(stripped) {
			return "", &apperrors.ValidationError{Reason: "WITH statement must resolve to a read-only query"}
		}
	case mutationKeywords[keyword]:
		return "", &apperrors.ValidationError{Reason: "statement type " + keyword + " is not allowed"}
	default:
		return "", &apperrors.ValidationError{Reason: "unrecognized statement type; only read-only queries are allowed"}
	}

	if name, found := MatchInjectionPattern(sqlText); found {
		return "", &apperrors.ValidationError{Reason: "possible SQL injection pattern detected (" + name + ")"}
	}

	return normalized, nil
}

// IsReadOnly reports whether the statement's leading keyword classifies it as
// read-only. Empty or unclassifiable input returns false. This is pure
// classification; Validate adds the multiple-statement and injection checks.
func IsReadOnly(sqlText string) bool {
	stripped := collapseWhitespace(StripComments(sqlText))
	if stripped == "" {
		return false
	}

	keyword := firstKeyword(stripped)
	if readOnlyKeywords[keyword] {
		return true
	}
	if keyword == "WITH" {
		return cteReadOnlyPattern.MatchString(stripped)
	}
	return false
}

// firstKeyword returns the first word of the statement, uppercased.
func firstKeyword(sqlText string) string {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return ""
	}
	word := fields[0]
	// A leading parenthesis hides the keyword: "(SELECT 1)" classifies as SELECT.
	word = strings.TrimLeft(word, "(")
	return strings.ToUpper(word)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// scanner states for comment and literal tracking.
const (
	stateNormal = iota
	stateSingleQuote
	stateDoubleQuote
	stateBracket
	stateLineComment
	stateBlockComment
)

// StripComments removes -- line comments and /* */ block comments while
// leaving string literals, double-quoted identifiers, and [bracketed]
// identifiers intact. Block comments do not nest.
func StripComments(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText))

	state := stateNormal
	runes := []rune(sqlText)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case c == '-' && next == '-':
				state = stateLineComment
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				i++
			case c == '\'':
				state = stateSingleQuote
				b.WriteRune(c)
			case c == '"':
				state = stateDoubleQuote
				b.WriteRune(c)
			case c == '[':
				state = stateBracket
				b.WriteRune(c)
			default:
				b.WriteRune(c)
			}
		case stateSingleQuote:
			b.WriteRune(c)
			if c == '\'' && next == '\'' {
				// SQL standard escaped quote: write both, stay in the literal.
				b.WriteRune(next)
				i++
			} else if c == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			b.WriteRune(c)
			if c == '"' {
				state = stateNormal
			}
		case stateBracket:
			b.WriteRune(c)
			if c == ']' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				b.WriteRune(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return b.String()
}

// hasSemicolonOutsideStrings reports whether any semicolon sits outside
// string literals and quoted identifiers. Run it after stripping the trailing
// semicolon: any hit means multiple statements.
func hasSemicolonOutsideStrings(sqlText string) bool {
	state := stateNormal
	prev := rune(0)

	for _, c := range sqlText {
		switch state {
		case stateNormal:
			switch c {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '[':
				state = stateBracket
			}
		case stateSingleQuote:
			if c == '\'' && prev != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' && prev != '\\' {
				state = stateNormal
			}
		case stateBracket:
			if c == ']' {
				state = stateNormal
			}
		}
		prev = c
	}

	return false
}

// stripTrailingSemicolon removes one trailing semicolon plus surrounding
// whitespace.
func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimRight(strings.TrimSuffix(sqlText, ";"), " \t\n\r")
	}
	return sqlText
}
