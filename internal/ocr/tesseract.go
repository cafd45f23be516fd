//go:build ocr

package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

const tesseractAvailable = true

type tesseractExtractor struct {
	languages []string
}

func newTesseractExtractor() TextExtractor {
	return &tesseractExtractor{languages: []string{"eng"}}
}

// Extract runs tesseract on a fresh client; gosseract clients are not
// safe for concurrent use.
func (e *tesseractExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", eris.Wrap(err, "ocr: set language")
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", eris.Wrap(err, "ocr: load image")
	}

	text, err := client.Text()
	if err != nil {
		return "", eris.Wrap(err, "ocr: recognise text")
	}
	return strings.TrimSpace(text), nil
}

func (e *tesseractExtractor) Enabled() bool { return true }
