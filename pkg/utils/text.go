// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns the first maxLen characters of s with "..." appended if anything was cut.
// Counts runes, not bytes. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Snippet returns the first maxLen characters of s followed by "...", whether or not s was cut.
func Snippet(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen > 0 && len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes) + "..."
}

// CountWords returns the number of whitespace-separated words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
