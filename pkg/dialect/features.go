package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

// knownDialects fixes the iteration order so feature detection and
// tie-breaking are deterministic.
var knownDialects = []models.Dialect{
	models.DialectMSSQL,
	models.DialectHANA,
	models.DialectPostgres,
}

// featurePattern is one dialect-specific construct we can recognize.
// Patterns shared by several dialects (for example LIMIT) carry the same
// name in each list so compatibility checks can tell shared syntax from
// truly foreign syntax.
type featurePattern struct {
	name string
	re   *regexp.Regexp
}

var dialectFeatures = map[models.Dialect][]featurePattern{
	models.DialectMSSQL: {
		{"TOP clause", regexp.MustCompile(`(?i)\bSELECT(?:\s+DISTINCT)?\s+TOP\s*\(?\s*\d+`)},
		{"GETDATE()", regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`)},
		{"ISNULL()", regexp.MustCompile(`(?i)\bISNULL\s*\(`)},
		{"bracketed identifier", regexp.MustCompile(`\[[A-Za-z_][^\]]*\]`)},
		{"NOLOCK hint", regexp.MustCompile(`(?i)\bWITH\s*\(\s*NOLOCK\s*\)`)},
		{"DATEADD()", regexp.MustCompile(`(?i)\bDATEADD\s*\(`)},
		{"LEN()", regexp.MustCompile(`(?i)\bLEN\s*\(`)},
	},
	models.DialectHANA: {
		{"LIMIT clause", regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)},
		{"CURRENT_TIMESTAMP", regexp.MustCompile(`(?i)\bCURRENT_TIMESTAMP\b`)},
		{"IFNULL()", regexp.MustCompile(`(?i)\bIFNULL\s*\(`)},
		{"quoted identifier", regexp.MustCompile(`"[A-Za-z_][^"]*"`)},
		{"FROM DUMMY", regexp.MustCompile(`(?i)\bFROM\s+DUMMY\b`)},
		{"ADD_DAYS()", regexp.MustCompile(`(?i)\bADD_DAYS\s*\(`)},
		{"LENGTH()", regexp.MustCompile(`(?i)\bLENGTH\s*\(`)},
	},
	models.DialectPostgres: {
		{"LIMIT clause", regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)},
		{"ILIKE", regexp.MustCompile(`(?i)\bILIKE\b`)},
		{"double-colon cast", regexp.MustCompile(`\w::\w+`)},
		{"NOW()", regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`)},
		{"CURRENT_TIMESTAMP", regexp.MustCompile(`(?i)\bCURRENT_TIMESTAMP\b`)},
		{"quoted identifier", regexp.MustCompile(`"[A-Za-z_][^"]*"`)},
		{"LENGTH()", regexp.MustCompile(`(?i)\bLENGTH\s*\(`)},
	},
}

// DetectFeatures counts dialect-specific constructs per dialect. A
// statement written for MSSQL typically scores highest for MSSQL; plain
// ANSI SQL scores zero everywhere. Counts are occurrences, not distinct
// patterns, so `ISNULL(a, ISNULL(b, c))` contributes two.
func (h *Handler) DetectFeatures(sql string) map[models.Dialect]int {
	counts := make(map[models.Dialect]int, len(knownDialects))
	for _, d := range knownDialects {
		n := 0
		for _, p := range dialectFeatures[d] {
			n += len(p.re.FindAllStringIndex(sql, -1))
		}
		counts[d] = n
	}
	return counts
}

// IsCompatible reports whether sql can run unmodified on the target
// dialect. It flags constructs belonging to another dialect unless the
// same construct (by pattern name) also belongs to the target, so shared
// syntax such as LIMIT never counts against a dialect that accepts it.
// The check is heuristic: a false "incompatible" only means AutoConvert
// will rewrite a statement the target might have accepted anyway.
func (h *Handler) IsCompatible(sql string, target models.Dialect) (bool, string) {
	native := make(map[string]bool)
	for _, p := range dialectFeatures[target] {
		native[p.name] = true
	}

	for _, d := range knownDialects {
		if d == target {
			continue
		}
		var foreign []string
		for _, p := range dialectFeatures[d] {
			if native[p.name] {
				continue
			}
			if p.re.MatchString(sql) {
				foreign = append(foreign, p.name)
			}
		}
		if len(foreign) > 0 {
			return false, fmt.Sprintf("statement uses %d %s-specific construct(s): %s",
				len(foreign), d, strings.Join(foreign, ", "))
		}
	}

	return true, ""
}
