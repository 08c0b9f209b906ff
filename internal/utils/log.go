// Package utils holds small helpers shared by the scorers and the ranker.
package utils

import "strings"

const ellipsis = "..."

// TruncateForLog flattens s onto one line and cuts it to limit runes.
// A non-positive limit disables the preview.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
