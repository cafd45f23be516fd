package analyzer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rotisserie/eris"
)

// createTestImage creates a uniformly filled image
func createTestImage(width, height int, fill color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}

// drawFinder paints a QR finder pattern with its top-left corner at (x0, y0)
func drawFinder(img *image.RGBA, x0, y0, module int) {
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}
	for my := 0; my < 7; my++ {
		for mx := 0; mx < 7; mx++ {
			c := white
			ring := mx == 0 || mx == 6 || my == 0 || my == 6
			core := mx >= 2 && mx <= 4 && my >= 2 && my <= 4
			if ring || core {
				c = black
			}
			for dy := 0; dy < module; dy++ {
				for dx := 0; dx < module; dx++ {
					img.Set(x0+mx*module+dx, y0+my*module+dy, c)
				}
			}
		}
	}
}

func createQRLikeImage() *image.RGBA {
	img := createTestImage(120, 120, color.RGBA{255, 255, 255, 255})
	drawFinder(img, 8, 8, 4)
	drawFinder(img, 84, 8, 4)
	drawFinder(img, 8, 84, 4)
	return img
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestColorMetrics(t *testing.T) {
	mc := NewMetricsCalculator()

	gray := mc.ColorMetrics(createTestImage(50, 40, color.RGBA{128, 128, 128, 255}))
	if gray.avgSaturation != 0 {
		t.Errorf("Expected zero saturation for gray, got %f", gray.avgSaturation)
	}
	if gray.avgLuminance < 0.49 || gray.avgLuminance > 0.51 {
		t.Errorf("Expected luminance near 0.5, got %f", gray.avgLuminance)
	}

	red := mc.ColorMetrics(createTestImage(3, 200, color.RGBA{255, 0, 0, 255}))
	if red.avgSaturation != 1 {
		t.Errorf("Expected full saturation for pure red, got %f", red.avgSaturation)
	}

	if empty := mc.ColorMetrics(image.NewRGBA(image.Rect(0, 0, 0, 0))); empty != (colorMetrics{}) {
		t.Errorf("Expected zero metrics for empty image, got %+v", empty)
	}
}

func TestLaplacianVariance(t *testing.T) {
	mc := NewMetricsCalculator()

	flat := mc.LaplacianVariance(toGray(createTestImage(30, 30, color.RGBA{90, 90, 90, 255})))
	if flat != 0 {
		t.Errorf("Expected zero variance for flat image, got %f", flat)
	}

	sharp := mc.LaplacianVariance(toGray(createQRLikeImage()))
	if sharp <= 100 {
		t.Errorf("Expected high variance for high-contrast image, got %f", sharp)
	}

	if tiny := mc.LaplacianVariance(image.NewGray(image.Rect(0, 0, 2, 2))); tiny != 0 {
		t.Errorf("Expected zero for tiny image, got %f", tiny)
	}
}

func TestEdgeDensity(t *testing.T) {
	mc := NewMetricsCalculator()

	if d := mc.EdgeDensity(toGray(createTestImage(30, 30, color.RGBA{200, 200, 200, 255}))); d != 0 {
		t.Errorf("Expected no edges, got %f", d)
	}
	d := mc.EdgeDensity(toGray(createQRLikeImage()))
	if d <= 0 || d >= 1 {
		t.Errorf("Expected edge density in (0,1), got %f", d)
	}
}

func TestDetectQRCode(t *testing.T) {
	detector := NewQRDetector()

	if !detector.DetectQRCode(toGray(createQRLikeImage())) {
		t.Error("Expected QR finder patterns to be detected")
	}
	if detector.DetectQRCode(toGray(createTestImage(200, 200, color.RGBA{255, 255, 255, 255}))) {
		t.Error("Expected no QR code in uniform white image")
	}
	if detector.DetectQRCode(toGray(createTestImage(10, 10, color.RGBA{0, 0, 0, 255}))) {
		t.Error("Expected no QR code in tiny image")
	}

	checker := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if (x/10+y/10)%2 == 0 {
				checker.Set(x, y, color.RGBA{0, 0, 0, 255})
			} else {
				checker.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	if detector.DetectQRCode(toGray(checker)) {
		t.Error("Expected checkerboard not to be read as a QR code")
	}
}

func TestFinderRatio(t *testing.T) {
	tests := []struct {
		runs []int
		want bool
	}{
		{[]int{4, 4, 12, 4, 4}, true},
		{[]int{3, 4, 11, 5, 4}, true},
		{[]int{10, 10, 10, 10, 10}, false},
		{[]int{1, 1, 1, 1, 1}, false},
		{[]int{4, 0, 12, 4, 4}, false},
	}
	for _, tt := range tests {
		if got := finderRatio(tt.runs); got != tt.want {
			t.Errorf("finderRatio(%v) = %v, want %v", tt.runs, got, tt.want)
		}
	}
}

func TestInspect(t *testing.T) {
	inspector := NewImageInspector(DefaultOptions())

	signals, err := inspector.Inspect(context.Background(), encodePNG(t, createQRLikeImage()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signals.Width != 120 || signals.Height != 120 {
		t.Errorf("Expected 120x120, got %dx%d", signals.Width, signals.Height)
	}
	if !signals.HasQRCode {
		t.Error("Expected QR code signal")
	}
	if signals.Blurry {
		t.Error("Did not expect a sharp image to be blurry")
	}

	white, err := inspector.Inspect(context.Background(), encodePNG(t, createTestImage(64, 64, color.RGBA{255, 255, 255, 255})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !white.Overexposed || !white.Blurry || white.HasQRCode {
		t.Errorf("Unexpected signals for white image: %+v", white)
	}
}

func TestInspectWithoutQRDetection(t *testing.T) {
	inspector := NewImageInspector(DefaultOptions().WithoutQRDetection())

	signals, err := inspector.Inspect(context.Background(), encodePNG(t, createQRLikeImage()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signals.HasQRCode {
		t.Error("Expected QR detection to be disabled")
	}
}

func TestInspectErrors(t *testing.T) {
	inspector := NewImageInspector(DefaultOptions())

	if _, err := inspector.Inspect(context.Background(), []byte("not an image")); err == nil {
		t.Error("Expected decode error")
	}

	limited := NewImageInspector(Options{MaxPixels: 100})
	_, err := limited.Inspect(context.Background(), encodePNG(t, createTestImage(20, 20, color.RGBA{0, 0, 0, 255})))
	if !eris.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := inspector.Inspect(ctx, encodePNG(t, createTestImage(20, 20, color.RGBA{0, 0, 0, 255}))); err == nil {
		t.Error("Expected context error")
	}
}
