package util

import "unicode/utf8"

// SafeTruncate truncates s to at most maxLen bytes without panicking and
// without splitting a multi-byte UTF-8 sequence. Provider error bodies are
// passed through here before they are logged or echoed back as diagnostics.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-body-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                // Returns: "short"
//	SafeTruncate("test", -1)                 // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
