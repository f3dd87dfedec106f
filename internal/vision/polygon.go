package vision

import (
	"image"
	"math"
)

// Point is a 2D coordinate in frame pixel space.
type Point struct {
	X float64
	Y float64
}

// Quad holds the four corners of a detected card boundary. Once Ordered has
// been applied the corners are [top-left, top-right, bottom-right,
// bottom-left].
type Quad [4]Point

// Ordered canonicalizes the corner order regardless of how the corners were
// discovered: the top-left corner minimizes x+y, the bottom-right maximizes
// x+y, the top-right minimizes y-x and the bottom-left maximizes y-x. The
// result is identical for any cyclic order or reflection of the input.
func (q Quad) Ordered() Quad {
	var out Quad
	out[0] = q[0] // top-left: min x+y
	out[1] = q[0] // top-right: min y-x
	out[2] = q[0] // bottom-right: max x+y
	out[3] = q[0] // bottom-left: max y-x
	for _, p := range q[1:] {
		if p.X+p.Y < out[0].X+out[0].Y {
			out[0] = p
		}
		if p.Y-p.X < out[1].Y-out[1].X {
			out[1] = p
		}
		if p.X+p.Y > out[2].X+out[2].Y {
			out[2] = p
		}
		if p.Y-p.X > out[3].Y-out[3].X {
			out[3] = p
		}
	}
	return out
}

// approxPolygon reduces a closed contour to a polygon using
// Ramer-Douglas-Peucker simplification: vertices whose perpendicular
// deviation from the chord connecting their neighbors is below epsilon are
// removed. The closed curve is split at the point farthest from contour[0]
// so both halves can be simplified as open chains.
func approxPolygon(points []image.Point, epsilon float64) []Point {
	if len(points) < 3 {
		return nil
	}

	pts := make([]Point, len(points))
	for i, p := range points {
		pts[i] = Point{X: float64(p.X), Y: float64(p.Y)}
	}

	// Split index: farthest point from the first one, guaranteeing the two
	// chords are non-degenerate.
	split := 0
	var maxDist float64
	for i, p := range pts {
		d := distance(pts[0], p)
		if d > maxDist {
			maxDist = d
			split = i
		}
	}
	if split == 0 {
		return nil
	}

	first := simplifyChain(pts[:split+1], epsilon)
	second := simplifyChain(append(pts[split:], pts[0]), epsilon)

	// Drop each chain's closing endpoint: it opens the next chain.
	poly := append(first[:len(first)-1], second[:len(second)-1]...)
	return poly
}

// simplifyChain is the recursive RDP step for an open polyline.
func simplifyChain(points []Point, epsilon float64) []Point {
	if len(points) <= 2 {
		return points
	}

	var maxDist float64
	index := 0
	last := len(points) - 1
	for i := 1; i < last; i++ {
		d := perpendicularDistance(points[i], points[0], points[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}

	if maxDist <= epsilon {
		return []Point{points[0], points[last]}
	}

	left := simplifyChain(points[:index+1], epsilon)
	right := simplifyChain(points[index:], epsilon)
	return append(left[:len(left)-1], right...)
}

// perpendicularDistance returns the distance from p to the line through a
// and b, falling back to point distance when a == b.
func perpendicularDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return distance(p, a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

func distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}
