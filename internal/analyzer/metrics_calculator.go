package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// sobelEdgeThreshold is the gradient magnitude counted as an edge
const sobelEdgeThreshold = 50

type colorMetrics struct {
	avgLuminance  float64
	avgSaturation float64
}

type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// ColorMetrics averages HSV value and saturation over horizontal strips in parallel
func (mc *metricsCalculator) ColorMetrics(img image.Image) colorMetrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return colorMetrics{}
	}

	workers := runtime.NumCPU()
	if height < workers {
		workers = height
	}
	rowsPerWorker := (height + workers - 1) / workers

	type strip struct {
		lum, sat float64
		pixels   int
	}
	results := make(chan strip, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := min(startY+rowsPerWorker, bounds.Max.Y)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			var st strip
			for y := startY; y < endY; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					s, v := saturationValue(float64(r)/65535, float64(g)/65535, float64(b)/65535)
					st.sat += s
					st.lum += v
					st.pixels++
				}
			}
			results <- st
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var total strip
	for st := range results {
		total.lum += st.lum
		total.sat += st.sat
		total.pixels += st.pixels
	}
	if total.pixels == 0 {
		return colorMetrics{}
	}

	n := float64(total.pixels)
	return colorMetrics{avgLuminance: total.lum / n, avgSaturation: total.sat / n}
}

// LaplacianVariance is a sharpness measure; low values mean a blurry or
// heavily smoothed image.
func (mc *metricsCalculator) LaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	data := mc.slicePool.Get().([]float64)
	defer func() { mc.slicePool.Put(data[:0]) }()

	// kernel [0 1 0; 1 -4 1; 0 1 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			lap := -4*float64(gray.GrayAt(x, y).Y) +
				float64(gray.GrayAt(x, y-1).Y) + float64(gray.GrayAt(x, y+1).Y) +
				float64(gray.GrayAt(x-1, y).Y) + float64(gray.GrayAt(x+1, y).Y)
			data = append(data, lap)
		}
	}

	return stat.Variance(data, nil)
}

// EdgeDensity is the fraction of interior pixels whose Sobel gradient
// exceeds sobelEdgeThreshold.
func (mc *metricsCalculator) EdgeDensity(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	edges := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			gx := sobelX(gray, x, y)
			gy := sobelY(gray, x, y)
			if math.Sqrt(float64(gx*gx+gy*gy)) > sobelEdgeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64((width-2)*(height-2))
}

func sobelX(gray *image.Gray, x, y int) int {
	return -int(gray.GrayAt(x-1, y-1).Y) + int(gray.GrayAt(x+1, y-1).Y) +
		-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
		-int(gray.GrayAt(x-1, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)
}

func sobelY(gray *image.Gray, x, y int) int {
	return -int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x+1, y-1).Y) +
		int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y)
}

// saturationValue returns the S and V components of the HSV form of r, g, b
func saturationValue(r, g, b float64) (s, v float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	if hi == 0 {
		return 0, 0
	}
	return (hi - lo) / hi, hi
}
