package vision

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// gaussianRadius is the fixed smoothing radius applied before gradient
// computation. It corresponds to the usual 5x5 Canny pre-blur.
const gaussianRadius = 2.0

// detectEdges computes a Canny-style binary edge map of img.
//
// Steps: grayscale conversion, Gaussian smoothing, Sobel gradients,
// non-maximum suppression, then hysteresis thresholding. A pixel is an edge
// if its suppressed gradient magnitude is above thresholdHigh, or above
// thresholdLow while 8-connected to a pixel above thresholdHigh. Thresholds
// are on a 0-255 intensity scale. Border pixels are never edges. The final
// map is dilated by one pixel so closed boundaries survive thinning intact.
func detectEdges(img image.Image, thresholdLow, thresholdHigh int) [][]bool {
	smoothed := blur.Gaussian(effect.Grayscale(img), gaussianRadius)

	bounds := smoothed.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// After Grayscale the R, G and B channels are equal; read luminance
	// straight out of the pixel buffer.
	lum := make([][]float64, height)
	for y := 0; y < height; y++ {
		lum[y] = make([]float64, width)
		row := smoothed.Pix[y*smoothed.Stride:]
		for x := 0; x < width; x++ {
			lum[y][x] = float64(row[x*4]) / 255.0
		}
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += lum[py][px] * sobelX[ky+1][kx+1]
					gy += lum[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Thin ridges to one pixel by keeping only local maxima along the
	// gradient direction.
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			default:
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	low := float64(thresholdLow) / 255.0
	high := float64(thresholdHigh) / 255.0

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			val := suppressed[y][x]
			switch {
			case val >= high:
				edges[y][x] = true
			case val >= low:
				for ky := -1; ky <= 1 && !edges[y][x]; ky++ {
					for kx := -1; kx <= 1; kx++ {
						py := clamp(y+ky, 0, height-1)
						px := clamp(x+kx, 0, width-1)
						if suppressed[py][px] >= high {
							edges[y][x] = true
							break
						}
					}
				}
			}
		}
	}

	return dilate(edges)
}

// dilate grows the edge map by one pixel in every direction. Non-maximum
// suppression picks the neighbor pair by gradient angle, and where two sides
// of a quadrilateral meet the angle swings through the diagonal sectors fast
// enough to suppress the corner pixels entirely. The hysteresis pass cannot
// restore them, so without dilation the boundary ring reaches the contour
// tracer as disconnected segments that enclose no area.
func dilate(edges [][]bool) [][]bool {
	height := len(edges)
	if height == 0 {
		return edges
	}
	width := len(edges[0])

	out := make([][]bool, height)
	for y := range out {
		out[y] = make([]bool, width)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] {
				continue
			}
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					out[clamp(y+ky, 0, height-1)][clamp(x+kx, 0, width-1)] = true
				}
			}
		}
	}
	return out
}

// clamp constrains v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
