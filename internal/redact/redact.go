// Package redact removes secret-shaped values from log records, error
// envelopes, and handler params before they leave the process. Grounded on
// original_source/app/exceptions/logging_utils.py's keyword-match approach
// — no pack repository pulls in a dedicated redaction library for this, so
// the keyword match itself is kept, not replaced with a heavier dependency.
package redact

import (
	"regexp"
	"strings"
)

// keywords is the case-insensitive set of substrings that mark a map key
// as sensitive.
var keywords = []string{"password", "token", "secret", "key", "auth", "credential", "api_key"}

const mask = "***REDACTED***"

// IsSensitiveKey reports whether a parameter/header/field name looks like
// it holds a secret, by keyword substring match.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Map returns a shallow copy of m with sensitive-keyed values replaced by a
// mask. Nested maps are redacted recursively; other value types are left
// as-is (redaction targets map keys, not value content).
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case IsSensitiveKey(k):
			out[k] = mask
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = Map(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// bearerTokenPattern matches "Bearer <token>" in a header value so a log
// line that embeds a full Authorization header (rather than passing it as
// a discrete map key) still gets redacted.
var bearerTokenPattern = regexp.MustCompile(`(?i)(bearer\s+)\S+`)

// String redacts bearer tokens embedded in free-text (e.g. a logged HTTP
// header line). Map-level redaction should be preferred wherever structured
// data is available; this is the fallback for raw strings.
func String(s string) string {
	return bearerTokenPattern.ReplaceAllString(s, "${1}"+mask)
}
