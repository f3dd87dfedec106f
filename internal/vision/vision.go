// Package vision locates a trading card in a raw camera frame and rectifies
// it to a canonical, front-facing image suitable for recognition.
//
// The pipeline is the classic document-scanner approach: convert to
// luminance, smooth, compute a Canny-style edge map, extract outer contours,
// approximate each contour as a polygon in descending area order, and warp
// the first quadrilateral found onto a fixed-size output rectangle.
//
// Normalization is a pure function of one frame. There is no retry logic
// here; when no card-shaped contour is found the caller is expected to
// capture a new frame.
package vision

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrCardNotFound is returned by Normalize when no contour in the frame
// reduces to a quadrilateral. It signals a recoverable miss, not a fault.
var ErrCardNotFound = errors.New("no card detected in frame")

const (
	// DefaultWidth and DefaultHeight give the canonical output a 5:7
	// aspect ratio matching a physical trading card (2.5" x 3.5").
	DefaultWidth  = 350
	DefaultHeight = 490

	// Canny hysteresis thresholds on a 0-255 intensity scale.
	thresholdLow  = 50
	thresholdHigh = 150

	// Polygon approximation tolerance as a fraction of contour perimeter.
	approxEpsilonRatio = 0.02

	// Frames larger than this on their longest side are downscaled before
	// edge detection. Corners are mapped back to full resolution so the
	// warp always samples the original frame.
	maxDetectDim = 1600
)

// Normalizer rectifies card photographs to a fixed output size.
// The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	width  int
	height int
}

// NewNormalizer returns a Normalizer producing images of the given size.
// Non-positive dimensions fall back to the defaults.
func NewNormalizer(width, height int) *Normalizer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Normalizer{width: width, height: height}
}

// Normalize finds the largest four-sided shape in frame and returns it
// rectified to the configured output size. It returns ErrCardNotFound when
// no contour approximates to exactly four vertices.
func (n *Normalizer) Normalize(frame image.Image) (*image.NRGBA, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("empty frame")
	}

	detect := frame
	scale := 1.0
	if d := max(bounds.Dx(), bounds.Dy()); d > maxDetectDim {
		scale = float64(d) / float64(maxDetectDim)
		if bounds.Dx() >= bounds.Dy() {
			detect = imaging.Resize(frame, maxDetectDim, 0, imaging.Lanczos)
		} else {
			detect = imaging.Resize(frame, 0, maxDetectDim, imaging.Lanczos)
		}
	}

	edges := detectEdges(detect, thresholdLow, thresholdHigh)
	contours := findContours(edges)

	quad, ok := largestQuadrilateral(contours)
	if !ok {
		return nil, ErrCardNotFound
	}
	if scale != 1.0 {
		for i := range quad {
			quad[i].X *= scale
			quad[i].Y *= scale
		}
	}
	quad = quad.Ordered()

	return warpPerspective(frame, quad, n.width, n.height)
}

// largestQuadrilateral scans contours in descending enclosed-area order and
// returns the first one whose polygon approximation has exactly four
// vertices. The ordering makes the search deterministic: ties between
// contours are broken by their discovery order in the edge map.
func largestQuadrilateral(contours []contour) (Quad, bool) {
	for _, c := range contours {
		poly := approxPolygon(c.points, approxEpsilonRatio*c.perimeter())
		if len(poly) == 4 {
			var q Quad
			copy(q[:], poly)
			return q, true
		}
	}
	return Quad{}, false
}
