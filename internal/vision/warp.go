package vision

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// warpPerspective resamples frame so that the ordered quadrilateral quad
// fills a width x height output rectangle. Output pixels that map outside
// the source frame are filled with opaque black.
func warpPerspective(frame image.Image, quad Quad, width, height int) (*image.NRGBA, error) {
	dst := Quad{
		{X: 0, Y: 0},
		{X: float64(width - 1), Y: 0},
		{X: float64(width - 1), Y: float64(height - 1)},
		{X: 0, Y: float64(height - 1)},
	}

	// Solve for the transform taking output coordinates to frame
	// coordinates, so the warp is a single inverse-mapping pass.
	h, err := computeHomography(dst, quad)
	if err != nil {
		return nil, err
	}

	src := imaging.Clone(frame)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			x, y, ok := h.apply(float64(u), float64(v))
			i := out.PixOffset(u, v)
			if !ok {
				out.Pix[i+3] = 0xff
				continue
			}
			r, g, b, a := bilinearSample(src, x, y)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = a
		}
	}
	return out, nil
}

// homography is a 3x3 projective transform in row-major order with the
// bottom-right element fixed to 1.
type homography [8]float64

// apply maps (x, y) through the transform. ok is false when the point maps
// to infinity (degenerate denominator).
func (h homography) apply(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + 1
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}

// computeHomography finds the projective transform mapping the four src
// points onto the four dst points. The four correspondences yield an 8x8
// linear system solved by Gaussian elimination with partial pivoting. A
// degenerate quadrilateral (collinear corners) makes the system singular.
func computeHomography(src, dst Quad) (homography, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -x * u, -y * u, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -x * v, -y * v, v}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return homography{}, errors.New("degenerate quadrilateral")
		}
		a[col], a[pivot] = a[pivot], a[col]

		for row := col + 1; row < 8; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	var h homography
	for row := 7; row >= 0; row-- {
		sum := a[row][8]
		for k := row + 1; k < 8; k++ {
			sum -= a[row][k] * h[k]
		}
		h[row] = sum / a[row][row]
	}
	return h, nil
}

// bilinearSample reads src at a fractional coordinate, blending the four
// surrounding pixels. Coordinates outside the image return opaque black.
func bilinearSample(src *image.NRGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	b := src.Bounds()
	w := b.Dx()
	h := b.Dy()

	if x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return 0, 0, 0, 0xff
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := clamp(x0+1, 0, w-1)
	y1 := clamp(y0+1, 0, h-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	blend := func(c int) uint8 {
		p00 := float64(src.Pix[src.PixOffset(x0, y0)+c])
		p10 := float64(src.Pix[src.PixOffset(x1, y0)+c])
		p01 := float64(src.Pix[src.PixOffset(x0, y1)+c])
		p11 := float64(src.Pix[src.PixOffset(x1, y1)+c])
		top := p00 + (p10-p00)*fx
		bot := p01 + (p11-p01)*fx
		return uint8(top + (bot-top)*fy + 0.5)
	}
	return blend(0), blend(1), blend(2), blend(3)
}
