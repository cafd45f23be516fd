// Package ocr extracts text from images so text-based heuristics can see
// what a screenshot says. Tesseract support is compiled in with the "ocr"
// build tag; without it every extractor is a no-op.
package ocr

import (
	"context"
)

// TextExtractor pulls printable text out of image bytes
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
	Enabled() bool
}

// NewTextExtractor returns a tesseract-backed extractor when enabled and
// available in this build, otherwise a no-op.
func NewTextExtractor(enabled bool) TextExtractor {
	if enabled && tesseractAvailable {
		return newTesseractExtractor()
	}
	return noopExtractor{}
}

type noopExtractor struct{}

func (noopExtractor) Extract(ctx context.Context, _ []byte) (string, error) {
	return "", ctx.Err()
}

func (noopExtractor) Enabled() bool { return false }
