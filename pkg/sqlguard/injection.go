package sqlguard

import (
	"regexp"

	libinjection "github.com/corazawaf/libinjection-go"
)

// injectionPatterns are the statement-level heuristics. Each carries a short
// name that ends up in the rejection reason. The list errs toward caution:
// a legitimate query tripping one of these is rejected too.
var injectionPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"comment after semicolon", regexp.MustCompile(`;\s*(--|/\*|#)`)},
	{"union select", regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`)},
	{"or 1=1", regexp.MustCompile(`(?i)\bOR\s+\d+\s*=\s*\d+\b`)},
	{"or quoted tautology", regexp.MustCompile(`(?i)\bOR\s+'[^']*'\s*=\s*'[^']*'`)},
	{"extended procedure", regexp.MustCompile(`(?i)\bxp_\w+`)},
	{"system procedure", regexp.MustCompile(`(?i)\bsp_\w+`)},
	{"waitfor delay", regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`)},
	{"file write", regexp.MustCompile(`(?i)\bINTO\s+(OUTFILE|DUMPFILE)\b`)},
	{"chained drop", regexp.MustCompile(`(?i);\s*DROP\b`)},
	{"hex encoding probe", regexp.MustCompile(`(?i)\b0x[0-9a-f]{8,}\b`)},
}

// MatchInjectionPattern scans raw statement text against the heuristic list
// and returns the name of the first pattern that fires.
func MatchInjectionPattern(sqlText string) (string, bool) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(sqlText) {
			return p.name, true
		}
	}
	return "", false
}

// InjectionCheck reports a parameter value flagged by libinjection.
type InjectionCheck struct {
	ParamName   string
	Fingerprint string
}

// CheckParameterValue screens one parameter value with libinjection. Only
// string values are screened; numbers, booleans, and nil cannot carry SQL.
// Returns nil when the value is clean.
func CheckParameterValue(name string, value any) *InjectionCheck {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}
	return &InjectionCheck{ParamName: name, Fingerprint: string(fingerprint)}
}

// CheckParameters screens every parameter value and returns the failures.
func CheckParameters(params map[string]any) []*InjectionCheck {
	var checks []*InjectionCheck
	for name, value := range params {
		if c := CheckParameterValue(name, value); c != nil {
			checks = append(checks, c)
		}
	}
	return checks
}
