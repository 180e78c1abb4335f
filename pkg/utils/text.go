// Package utils provides shared utilities for text and logging.
package utils

// Truncate returns s truncated to at most maxLen runes, with "..." appended
// if truncated. The cut never splits a UTF-8 sequence. If maxLen is 0 or
// negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
