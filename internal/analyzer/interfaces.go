// Package analyzer measures pixel-level signals of uploaded images that hint
// at editing, screenshots of scams or embedded QR codes.
package analyzer

import (
	"context"
	"image"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// ImageInspector decodes an image and measures its signals
type ImageInspector interface {
	Inspect(ctx context.Context, data []byte) (*models.ImageSignals, error)
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	ColorMetrics(img image.Image) colorMetrics
	LaplacianVariance(gray *image.Gray) float64
	EdgeDensity(gray *image.Gray) float64
}

// QRDetector handles QR code detection
type QRDetector interface {
	DetectQRCode(gray *image.Gray) bool
}
