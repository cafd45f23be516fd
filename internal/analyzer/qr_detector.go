package analyzer

import (
	"image"
	"math"
)

// darkThreshold splits gray pixels into dark and light modules
const darkThreshold = 128

type qrDetector struct {
	// rows between scan lines
	rowStep int
}

// NewQRDetector creates a new QR detector
func NewQRDetector() QRDetector {
	return &qrDetector{rowStep: 2}
}

// DetectQRCode looks for the three finder patterns of a QR code: squares
// whose rows and columns read dark-light-dark-light-dark in a 1:1:3:1:1 ratio.
func (qd *qrDetector) DetectQRCode(gray *image.Gray) bool {
	bounds := gray.Bounds()
	if bounds.Dx() < 21 || bounds.Dy() < 21 {
		return false
	}

	var centers []image.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y += qd.rowStep {
		runs, starts := runLengths(func(i int) bool { return isDark(gray, bounds.Min.X+i, y) }, bounds.Dx())
		for i := 0; i+5 <= len(runs); i++ {
			if !isDark(gray, bounds.Min.X+starts[i], y) || !finderRatio(runs[i:i+5]) {
				continue
			}
			cx := bounds.Min.X + starts[i+2] + runs[i+2]/2
			if !qd.confirmVertical(gray, cx, y, runs[i:i+5]) {
				continue
			}
			centers = addCenter(centers, image.Pt(cx, y), runs[i+2])
		}
	}
	return len(centers) >= 3
}

// confirmVertical checks that the column through the candidate center also
// crosses a finder pattern of similar size.
func (qd *qrDetector) confirmVertical(gray *image.Gray, x, y int, horizontal []int) bool {
	bounds := gray.Bounds()
	total := 0
	for _, r := range horizontal {
		total += r
	}

	top := max(bounds.Min.Y, y-total)
	bottom := min(bounds.Max.Y, y+total+1)
	runs, starts := runLengths(func(i int) bool { return isDark(gray, x, top+i) }, bottom-top)

	for i := 0; i+5 <= len(runs); i++ {
		if !isDark(gray, x, top+starts[i]) || !finderRatio(runs[i:i+5]) {
			continue
		}
		sum := 0
		for _, r := range runs[i : i+5] {
			sum += r
		}
		center := top + starts[i+2] + runs[i+2]/2
		if abs(center-y) <= runs[i+2] && math.Abs(float64(sum-total)) <= float64(total)/2 {
			return true
		}
	}
	return false
}

// addCenter merges a candidate into an existing center closer than one core width
func addCenter(centers []image.Point, p image.Point, core int) []image.Point {
	for _, c := range centers {
		if abs(c.X-p.X) <= core && abs(c.Y-p.Y) <= core*2 {
			return centers
		}
	}
	return append(centers, p)
}

// finderRatio reports whether five runs match 1:1:3:1:1 within half a module
func finderRatio(runs []int) bool {
	total := 0
	for _, r := range runs {
		if r == 0 {
			return false
		}
		total += r
	}
	if total < 7 {
		return false
	}
	module := float64(total) / 7
	tolerance := module / 2
	expected := [5]float64{1, 1, 3, 1, 1}
	for i, r := range runs {
		if math.Abs(float64(r)-expected[i]*module) > expected[i]*tolerance {
			return false
		}
	}
	return true
}

// runLengths splits n samples into runs of equal darkness
func runLengths(dark func(i int) bool, n int) (runs, starts []int) {
	if n == 0 {
		return nil, nil
	}
	prev := dark(0)
	start := 0
	for i := 1; i < n; i++ {
		if d := dark(i); d != prev {
			runs = append(runs, i-start)
			starts = append(starts, start)
			start, prev = i, d
		}
	}
	runs = append(runs, n-start)
	starts = append(starts, start)
	return runs, starts
}

func isDark(gray *image.Gray, x, y int) bool {
	return gray.GrayAt(x, y).Y < darkThreshold
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
