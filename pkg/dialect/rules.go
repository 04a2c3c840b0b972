package dialect

import (
	"regexp"
	"strings"

	"github.com/dataglade/dataglade-connect/pkg/models"
)

// conversionKey identifies one ordered rule list.
type conversionKey struct {
	From models.Dialect
	To   models.Dialect
}

// conversionRule is one substitution in a rule list. Simple rules pair a
// regex with a replacement template; structural rewrites (moving a TOP
// bound to a trailing LIMIT) use a rewrite function instead.
type conversionRule struct {
	name    string
	warn    string
	re      *regexp.Regexp
	replace string
	rewrite func(string) (string, bool)
}

func (r conversionRule) apply(sql string) (string, bool) {
	if r.rewrite != nil {
		return r.rewrite(sql)
	}
	if !r.re.MatchString(sql) {
		return sql, false
	}
	return r.re.ReplaceAllString(sql, r.replace), true
}

var (
	selectTopPattern     = regexp.MustCompile(`(?i)\bSELECT(\s+DISTINCT)?\s+TOP\s*\(?\s*(\d+)\s*\)?\s*`)
	trailingLimitPattern = regexp.MustCompile(`(?i)\s+LIMIT\s+(\d+)\s*;?\s*$`)
	selectHeadPattern    = regexp.MustCompile(`(?i)\bSELECT(\s+DISTINCT)?\s+`)

	getdatePattern       = regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`)
	nowPattern           = regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`)
	currentTimestampFull = regexp.MustCompile(`(?i)\bCURRENT_TIMESTAMP\b`)
	isnullPattern        = regexp.MustCompile(`(?i)\bISNULL\s*\(`)
	ifnullPattern        = regexp.MustCompile(`(?i)\bIFNULL\s*\(`)
	lenFuncPattern       = regexp.MustCompile(`(?i)\bLEN\s*\(`)
	lengthFuncPattern    = regexp.MustCompile(`(?i)\bLENGTH\s*\(`)
	bracketIdentPattern  = regexp.MustCompile(`\[([^\]]+)\]`)
	quotedIdentPattern   = regexp.MustCompile(`"([A-Za-z_][^"]*)"`)
	nolockHintPattern    = regexp.MustCompile(`(?i)\s*WITH\s*\(\s*NOLOCK\s*\)`)
	fromDummyPattern     = regexp.MustCompile(`(?i)\s*FROM\s+DUMMY\b`)
	ilikePattern         = regexp.MustCompile(`(?i)\bILIKE\b`)
	doubleColonCast      = regexp.MustCompile(`((?:'[^']*')|(?:[\w.]+))::(\w+)`)
	dateAddDayPattern    = regexp.MustCompile(`(?i)\bDATEADD\s*\(\s*(?:day|dd|d)\s*,\s*([^,()]+?)\s*,\s*([^()]+?)\s*\)`)
	addDaysPattern       = regexp.MustCompile(`(?i)\bADD_DAYS\s*\(\s*([^,()]+?)\s*,\s*([^()]+?)\s*\)`)
)

// rewriteTopToLimit removes the first SELECT TOP n bound and appends it as
// a trailing LIMIT clause. Nested TOPs are left alone; the rewrite is
// best-effort for the outermost statement.
func rewriteTopToLimit(sql string) (string, bool) {
	m := selectTopPattern.FindStringSubmatchIndex(sql)
	if m == nil {
		return sql, false
	}

	bound := sql[m[4]:m[5]]
	head := "SELECT"
	if m[2] >= 0 {
		head += sql[m[2]:m[3]]
	}

	out := sql[:m[0]] + head + " " + sql[m[1]:]
	out = strings.TrimRight(out, " \t\r\n;")
	return out + " LIMIT " + bound, true
}

// rewriteLimitToTop moves a trailing LIMIT bound into a TOP clause on the
// first SELECT. LIMIT with OFFSET, or a LIMIT buried in a subquery, is
// left alone.
func rewriteLimitToTop(sql string) (string, bool) {
	lm := trailingLimitPattern.FindStringSubmatchIndex(sql)
	if lm == nil {
		return sql, false
	}

	bound := sql[lm[2]:lm[3]]
	base := sql[:lm[0]]

	sm := selectHeadPattern.FindStringIndex(base)
	if sm == nil {
		return sql, false
	}
	return base[:sm[1]] + "TOP (" + bound + ") " + base[sm[1]:], true
}

// conversionRules holds the ordered rule list per (from, to) pair. Row
// bounds move first so later textual rules never disturb the relocated
// bound, then function renames, then identifier quoting and hints.
var conversionRules = map[conversionKey][]conversionRule{
	{models.DialectMSSQL, models.DialectHANA}: {
		{name: "top-to-limit", warn: "TOP rewritten as a trailing LIMIT clause", rewrite: rewriteTopToLimit},
		{name: "getdate", warn: "GETDATE() replaced with CURRENT_TIMESTAMP", re: getdatePattern, replace: "CURRENT_TIMESTAMP"},
		{name: "isnull", warn: "ISNULL replaced with IFNULL", re: isnullPattern, replace: "IFNULL("},
		{name: "len", warn: "LEN replaced with LENGTH", re: lenFuncPattern, replace: "LENGTH("},
		{name: "dateadd-day", warn: "DATEADD(day, ...) rewritten as ADD_DAYS", re: dateAddDayPattern, replace: "ADD_DAYS($2, $1)"},
		{name: "bracket-idents", warn: "bracketed identifiers rewritten with double quotes", re: bracketIdentPattern, replace: `"$1"`},
		{name: "nolock", warn: "WITH (NOLOCK) hint removed", re: nolockHintPattern, replace: ""},
	},
	{models.DialectHANA, models.DialectMSSQL}: {
		{name: "limit-to-top", warn: "trailing LIMIT rewritten as TOP", rewrite: rewriteLimitToTop},
		{name: "current-timestamp", warn: "CURRENT_TIMESTAMP replaced with GETDATE()", re: currentTimestampFull, replace: "GETDATE()"},
		{name: "ifnull", warn: "IFNULL replaced with ISNULL", re: ifnullPattern, replace: "ISNULL("},
		{name: "length", warn: "LENGTH replaced with LEN", re: lengthFuncPattern, replace: "LEN("},
		{name: "add-days", warn: "ADD_DAYS rewritten as DATEADD(day, ...)", re: addDaysPattern, replace: "DATEADD(day, $2, $1)"},
		{name: "quoted-idents", warn: "quoted identifiers rewritten with brackets", re: quotedIdentPattern, replace: "[$1]"},
		{name: "from-dummy", warn: "FROM DUMMY removed", re: fromDummyPattern, replace: ""},
	},
	{models.DialectMSSQL, models.DialectPostgres}: {
		{name: "top-to-limit", warn: "TOP rewritten as a trailing LIMIT clause", rewrite: rewriteTopToLimit},
		{name: "getdate", warn: "GETDATE() replaced with CURRENT_TIMESTAMP", re: getdatePattern, replace: "CURRENT_TIMESTAMP"},
		{name: "isnull", warn: "ISNULL replaced with COALESCE", re: isnullPattern, replace: "COALESCE("},
		{name: "len", warn: "LEN replaced with LENGTH", re: lenFuncPattern, replace: "LENGTH("},
		{name: "bracket-idents", warn: "bracketed identifiers rewritten with double quotes", re: bracketIdentPattern, replace: `"$1"`},
		{name: "nolock", warn: "WITH (NOLOCK) hint removed", re: nolockHintPattern, replace: ""},
	},
	{models.DialectPostgres, models.DialectMSSQL}: {
		{name: "limit-to-top", warn: "trailing LIMIT rewritten as TOP", rewrite: rewriteLimitToTop},
		{name: "now", warn: "NOW() replaced with GETDATE()", re: nowPattern, replace: "GETDATE()"},
		{name: "current-timestamp", warn: "CURRENT_TIMESTAMP replaced with GETDATE()", re: currentTimestampFull, replace: "GETDATE()"},
		{name: "ilike", warn: "ILIKE replaced with LIKE; matching follows the target's collation", re: ilikePattern, replace: "LIKE"},
		{name: "double-colon-cast", warn: "double-colon cast rewritten as CAST(... AS ...)", re: doubleColonCast, replace: "CAST($1 AS $2)"},
		{name: "length", warn: "LENGTH replaced with LEN", re: lengthFuncPattern, replace: "LEN("},
		{name: "quoted-idents", warn: "quoted identifiers rewritten with brackets", re: quotedIdentPattern, replace: "[$1]"},
	},
	{models.DialectHANA, models.DialectPostgres}: {
		{name: "ifnull", warn: "IFNULL replaced with COALESCE", re: ifnullPattern, replace: "COALESCE("},
		{name: "from-dummy", warn: "FROM DUMMY removed", re: fromDummyPattern, replace: ""},
	},
	{models.DialectPostgres, models.DialectHANA}: {
		{name: "now", warn: "NOW() replaced with CURRENT_TIMESTAMP", re: nowPattern, replace: "CURRENT_TIMESTAMP"},
		{name: "ilike", warn: "ILIKE replaced with LIKE; matching follows the target's collation", re: ilikePattern, replace: "LIKE"},
		{name: "double-colon-cast", warn: "double-colon cast rewritten as CAST(... AS ...)", re: doubleColonCast, replace: "CAST($1 AS $2)"},
	},
}
