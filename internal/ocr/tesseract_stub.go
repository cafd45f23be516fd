//go:build !ocr

package ocr

const tesseractAvailable = false

func newTesseractExtractor() TextExtractor {
	return noopExtractor{}
}
