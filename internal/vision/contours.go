package vision

import (
	"image"
	"math"
	"sort"
)

// minContourSize filters out edge fragments too small to be a card boundary.
const minContourSize = 16

// contour is the traced outer boundary of one connected edge region,
// ordered clockwise around the region.
type contour struct {
	points []image.Point
	area   float64
}

// perimeter returns the arc length of the closed boundary polyline.
func (c contour) perimeter() float64 {
	var length float64
	n := len(c.points)
	for i := 0; i < n; i++ {
		p := c.points[i]
		q := c.points[(i+1)%n]
		dx := float64(q.X - p.X)
		dy := float64(q.Y - p.Y)
		length += math.Sqrt(dx*dx + dy*dy)
	}
	return length
}

// findContours extracts the outer boundary of every connected edge region
// and returns them sorted by enclosed area, largest first. Inner boundaries
// (holes) are not traced; each region contributes exactly one contour.
func findContours(edges [][]bool) []contour {
	height := len(edges)
	if height == 0 {
		return nil
	}
	width := len(edges[0])

	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	var contours []contour
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] || visited[y][x] {
				continue
			}
			// Row-major scan order guarantees this is the topmost-leftmost
			// pixel of its region, a valid start for boundary tracing.
			boundary := traceBoundary(edges, image.Pt(x, y), width, height)
			markRegion(edges, visited, x, y, width, height)
			if len(boundary) < minContourSize {
				continue
			}
			contours = append(contours, contour{
				points: boundary,
				area:   shoelaceArea(boundary),
			})
		}
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].area > contours[j].area
	})
	return contours
}

// mooreNeighbors lists the 8-neighborhood in clockwise order starting west.
var mooreNeighbors = [8]image.Point{
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
}

// traceBoundary walks the outer boundary of the region containing start
// using Moore-neighbor tracing. start must be the topmost-leftmost pixel of
// the region so that the initial backtrack direction (west) lies outside it.
// The walk stops when it re-enters start from the original direction.
func traceBoundary(edges [][]bool, start image.Point, width, height int) []image.Point {
	set := func(p image.Point) bool {
		return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height && edges[p.Y][p.X]
	}

	boundary := []image.Point{start}
	current := start
	backtrack := 0 // index into mooreNeighbors: entered scanning from west

	// Isolated pixel: no set neighbor at all.
	found := false
	for _, d := range mooreNeighbors {
		if set(current.Add(d)) {
			found = true
			break
		}
	}
	if !found {
		return boundary
	}

	firstDir := -1
	limit := 4 * width * height
	for step := 0; step < limit; step++ {
		next := -1
		for i := 1; i <= 8; i++ {
			dir := (backtrack + i) % 8
			if set(current.Add(mooreNeighbors[dir])) {
				next = dir
				break
			}
		}
		if next < 0 {
			break
		}
		if current == start {
			if firstDir == -1 {
				firstDir = next
			} else if next == firstDir {
				// Closed the loop with the same exit as the first step.
				break
			}
		}

		current = current.Add(mooreNeighbors[next])
		// Resume the clockwise sweep just past the direction pointing back
		// at the pixel we came from.
		backtrack = (next + 4) % 8
		if current == start {
			// Re-entered the start pixel; the next scan decides whether the
			// loop is closed.
			continue
		}
		boundary = append(boundary, current)
	}

	return boundary
}

// markRegion flood-fills visited for the whole connected region so each
// region is traced once. Iterative to keep large card outlines off the call
// stack.
func markRegion(edges, visited [][]bool, startX, startY, width, height int) {
	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Pt(p.X+dx, p.Y+dy))
			}
		}
	}
}

// shoelaceArea returns the absolute area enclosed by a closed polyline.
func shoelaceArea(points []image.Point) float64 {
	var sum float64
	n := len(points)
	for i := 0; i < n; i++ {
		p := points[i]
		q := points[(i+1)%n]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	return math.Abs(sum) / 2
}
