// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
// The cut is moved back to a rune boundary so the result stays valid UTF-8.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	cut, ok := cutPoint(s, maxLen)
	if !ok {
		return s
	}
	return s[:cut] + "..."
}

// Clip returns the first maxLen runes of s, or s unchanged when it is no longer than
// that or maxLen is 0 or negative.
func Clip(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

func cutPoint(s string, maxLen int) (int, bool) {
	if maxLen <= 0 || len(s) <= maxLen {
		return 0, false
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return cut, true
}
