package util

import "strings"

// SanitizeText strips bytes Postgres text columns reject. PDF extractors
// routinely leak NUL and other control bytes into extracted text.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// Snippet trims s to at most maxRunes for display, collapsing interior
// whitespace runs and marking the cut with an ellipsis.
func Snippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 280
	}
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
