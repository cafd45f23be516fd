package analyzer

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// ErrImageTooLarge is returned when the decoded image exceeds Options.MaxPixels
var ErrImageTooLarge = eris.New("image exceeds the pixel limit")

type imageInspector struct {
	opts    Options
	metrics MetricsCalculator
	qr      QRDetector
}

// NewImageInspector creates an inspector with the given thresholds
func NewImageInspector(opts Options) ImageInspector {
	return &imageInspector{
		opts:    opts,
		metrics: NewMetricsCalculator(),
		qr:      NewQRDetector(),
	}
}

func (ii *imageInspector) Inspect(ctx context.Context, data []byte) (*models.ImageSignals, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: unsupported image")
	}
	if ii.opts.MaxPixels > 0 && cfg.Width*cfg.Height > ii.opts.MaxPixels {
		return nil, eris.Wrapf(ErrImageTooLarge, "analyzer: %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: decode image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	color := ii.metrics.ColorMetrics(img)
	signals := &models.ImageSignals{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Sharpness:     ii.metrics.LaplacianVariance(gray),
		AvgLuminance:  color.avgLuminance,
		AvgSaturation: color.avgSaturation,
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signals.EdgeDensity = ii.metrics.EdgeDensity(gray)

	signals.Blurry = signals.Sharpness < ii.opts.BlurThreshold
	signals.Overexposed = signals.AvgLuminance > ii.opts.OverexposureThreshold
	signals.Oversaturated = signals.AvgSaturation > ii.opts.OversaturationThreshold
	if ii.opts.DetectQR {
		signals.HasQRCode = ii.qr.DetectQRCode(gray)
	}
	return signals, nil
}
