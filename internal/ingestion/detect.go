package ingestion

import "unicode"

// DetectLanguage is a deliberately small script-based detector: any
// Devanagari rune marks the text as Hindi, otherwise the configured
// default applies. Queries in this corpus are either English or Hindi,
// so full language identification would be dead weight.
func DetectLanguage(text, fallback string) string {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return "hi"
		}
	}
	return fallback
}
