// Package extract turns uploaded file bytes into plain text. Binary
// formats (PDF, DOCX, image OCR) are the job of external extractors; this
// package handles text-based MIME types only.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// TextExtractor extracts plain text from text-based MIME types.
type TextExtractor struct{}

// New creates a plain-text extractor.
func New() *TextExtractor { return &TextExtractor{} }

var textTypes = map[string]struct{}{
	"application/json":       {},
	"application/xml":        {},
	"application/x-yaml":     {},
	"application/javascript": {},
}

// Supported reports whether this extractor can handle mimeType.
func Supported(mimeType string) bool {
	mimeType = normalise(mimeType)
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	_, ok := textTypes[mimeType]
	return ok
}

// Extract returns the UTF-8 text content of data. Unsupported MIME types
// fail with ErrUnsupportedType so the caller can route them to an
// external extractor.
func (e *TextExtractor) Extract(data []byte, mimeType string) (string, error) {
	if !Supported(mimeType) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s content is not valid UTF-8", domain.ErrInvalidInput, mimeType)
	}
	return string(data), nil
}

// normalise strips MIME parameters such as "; charset=utf-8".
func normalise(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
