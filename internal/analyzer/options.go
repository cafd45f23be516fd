package analyzer

// Options holds the thresholds used to flag image signals
type Options struct {
	// Laplacian variance below which an image counts as blurry
	BlurThreshold float64

	// Average luminance and saturation, both in [0,1]
	OverexposureThreshold   float64
	OversaturationThreshold float64

	DetectQR bool

	// MaxPixels skips measurement for larger images; 0 means no limit
	MaxPixels int
}

// DefaultOptions returns the default thresholds
func DefaultOptions() Options {
	return Options{
		BlurThreshold:           100.0,
		OverexposureThreshold:   0.85,
		OversaturationThreshold: 0.75,
		DetectQR:                true,
		MaxPixels:               40_000_000,
	}
}

// WithCustomThresholds returns options with custom thresholds
func (opts Options) WithCustomThresholds(blur, overexposure, oversaturation float64) Options {
	opts.BlurThreshold = blur
	opts.OverexposureThreshold = overexposure
	opts.OversaturationThreshold = oversaturation
	return opts
}

// WithoutQRDetection disables QR detection
func (opts Options) WithoutQRDetection() Options {
	opts.DetectQR = false
	return opts
}
