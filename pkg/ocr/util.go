package ocr

import "unicode/utf8"

// Snippet returns a shortened version of s for logging.
func Snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return TruncateUTF8(s, max) + "\u2026"
}

// TruncateUTF8 returns at most n bytes of s, cut on a rune boundary.
func TruncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
