package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lexrag/internal/util"
)

func TestCheckExtractedEmptyText(t *testing.T) {
	l := NewLoader(200, 100)
	require.ErrorIs(t, l.CheckExtracted("", 10), util.ErrNoExtractableText)
}

func TestCheckExtractedTooFewTotalChars(t *testing.T) {
	l := NewLoader(200, 100)
	err := l.CheckExtracted(strings.Repeat("a", 150), 1)
	require.ErrorIs(t, err, util.ErrScannedDocument)
}

func TestCheckExtractedTooFewCharsPerPage(t *testing.T) {
	l := NewLoader(200, 100)
	// 500 chars over 20 pages is 25 chars/page, well below 100.
	err := l.CheckExtracted(strings.Repeat("a", 500), 20)
	require.ErrorIs(t, err, util.ErrScannedDocument)
}

func TestCheckExtractedHealthyDocument(t *testing.T) {
	l := NewLoader(200, 100)
	require.NoError(t, l.CheckExtracted(strings.Repeat("a", 5000), 10))
}

func TestCheckExtractedUnknownPageCount(t *testing.T) {
	// Page count zero disables the per-page check, not the total check.
	l := NewLoader(200, 100)
	require.NoError(t, l.CheckExtracted(strings.Repeat("a", 500), 0))
}

func TestDetectLanguageDevanagari(t *testing.T) {
	require.Equal(t, "hi", DetectLanguage("धारा 420 के अंतर्गत", "en"))
	require.Equal(t, "hi", DetectLanguage("mixed text with धोखाधड़ी inline", "en"))
}

func TestDetectLanguageFallback(t *testing.T) {
	require.Equal(t, "en", DetectLanguage("Section 420 of the Penal Code", "en"))
	require.Equal(t, "en", DetectLanguage("", "en"))
}
