package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a SQL statement to log.
	MaxQueryLogLength = 120
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in DSN query strings and
	// semicolon-delimited option lists (go-mssqldb and go-hdb both accept
	// both forms).
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches the user:pass@host segment of URL-style DSNs
	// (sqlserver://, hdb://, postgres://).
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Matches access tokens that drivers occasionally echo back in errors.
	tokenPattern = regexp.MustCompile(`(?i)(token|accesstoken)=[A-Za-z0-9-_.]{16,}`)
)

// SanitizeDSN removes credentials from a connection string before it is
// logged or embedded in an error message.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeError renders an error for logs with credentials and connection
// details removed. Driver errors can echo the full DSN on dial failures.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = tokenPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeQuery truncates and sanitizes a SQL statement for logging. String
// literals are kept (they are needed to debug rejected statements) but
// credential-shaped patterns are redacted.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}

	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = tokenPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return sanitized
}

// TruncateString truncates s to maxLen bytes and appends an ellipsis marker
// when it was cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
