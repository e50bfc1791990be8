package util

import "errors"

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrIndexUnavailable  = errors.New("session index snapshot unavailable")
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrScannedDocument   = errors.New("document appears to be scanned, OCR required")
)
