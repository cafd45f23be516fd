package models

// ImageSignals are pixel-level measurements of an uploaded image. They are
// hints for the provider, not a verdict.
type ImageSignals struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Sharpness is the Laplacian variance of the grayscale image
	Sharpness     float64 `json:"sharpness"`
	AvgLuminance  float64 `json:"avg_luminance"`
	AvgSaturation float64 `json:"avg_saturation"`
	EdgeDensity   float64 `json:"edge_density"`

	Blurry        bool `json:"blurry"`
	Overexposed   bool `json:"overexposed"`
	Oversaturated bool `json:"oversaturated"`
	HasQRCode     bool `json:"has_qr_code"`
}

// Notes lists the notable signals in plain words
func (s *ImageSignals) Notes() []string {
	if s == nil {
		return nil
	}
	var notes []string
	if s.HasQRCode {
		notes = append(notes, "contains a QR code")
	}
	if s.Blurry {
		notes = append(notes, "unusually blurry")
	}
	if s.Overexposed {
		notes = append(notes, "overexposed")
	}
	if s.Oversaturated {
		notes = append(notes, "oversaturated colours")
	}
	return notes
}
