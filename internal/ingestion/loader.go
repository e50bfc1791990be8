package ingestion

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"lexrag/internal/util"
)

// Loader turns a PDF on disk into clean plain text. Legal archives are
// full of scanned judgments with no text layer, so the loader applies a
// cheap heuristic before handing text downstream: too little total text
// or too little text per page means the file needs OCR, which is out of
// scope here.
type Loader struct {
	minExtractedChars  int
	minAvgCharsPerPage int
}

func NewLoader(minExtractedChars, minAvgCharsPerPage int) *Loader {
	return &Loader{
		minExtractedChars:  minExtractedChars,
		minAvgCharsPerPage: minAvgCharsPerPage,
	}
}

// LoadPDF extracts and sanitizes the text of the PDF at path.
// Returns ErrNoExtractableText when the file has no text at all and
// ErrScannedDocument when the text layer is too thin to be the real
// document body.
func (l *Loader) LoadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text %s: %w", path, err)
	}

	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	return text, l.CheckExtracted(text, r.NumPage())
}

// CheckExtracted applies the scanned-document heuristic to already
// extracted text. Split out so callers with text from other sources can
// reuse the same thresholds.
func (l *Loader) CheckExtracted(text string, pages int) error {
	chars := len([]rune(text))
	if chars == 0 {
		return util.ErrNoExtractableText
	}
	if chars < l.minExtractedChars {
		return fmt.Errorf("only %d chars extracted, need %d: %w", chars, l.minExtractedChars, util.ErrScannedDocument)
	}
	if pages > 0 && chars/pages < l.minAvgCharsPerPage {
		return fmt.Errorf("%d chars over %d pages is below %d chars/page: %w",
			chars, pages, l.minAvgCharsPerPage, util.ErrScannedDocument)
	}
	return nil
}
