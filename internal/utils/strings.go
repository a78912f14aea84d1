// Package utils provides common utility functions.
package utils

import "strings"

// MaskKey masks a credential for safe logging (shows first 8 and last 4 chars).
// Use this to avoid logging sensitive credentials in plain text.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// MaskKeyShort masks a credential showing only first 4 and last 4 chars.
// Use this for more compact display in CLI output.
func MaskKeyShort(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// MaskAuthorization masks an Authorization header value but keeps its scheme
// readable, e.g. "Bearer eyJhbGci...x9Q0".
func MaskAuthorization(header string) string {
	if header == "" {
		return "(none)"
	}
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok {
		return MaskKey(header)
	}
	return scheme + " " + MaskKey(strings.TrimSpace(cred))
}

// Truncate shortens s to at most maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
