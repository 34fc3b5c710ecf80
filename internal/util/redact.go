package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" in case a proxy or upstream library echoes an
	// Authorization header into an error string.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings. The bind
	// and SMTP passwords are the only secrets this tool holds.
	passwordKVRe = regexp.MustCompile(`(?i)\b(pass(?:word)?|pwd|bind[_-]?password|smtp[_-]?password)\b\s*[:=]\s*[^\s"']+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
//
// It is safe to call on any message, including upstream error strings, before
// they reach the log file, stderr, or an alert email body.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = passwordKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
