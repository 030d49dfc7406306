// Package geometry holds the 2D primitives used by corner selection and
// homography estimation: points, convex hulls and polygon simplification.
package geometry

import "math"

// Point represents a 2D coordinate in float space. Image points use pixel
// coordinates with x to the right and y down.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Less orders points by X then Y.
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

// Centroid returns the arithmetic mean of pts. Empty input yields the origin.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	cx, cy := 0.0, 0.0
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	return Point{X: cx / n, Y: cy / n}
}

// Cross returns the z component of (a-o) x (b-o). Positive values mean a
// counter-clockwise turn in a y-up frame.
func Cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Collinear reports whether a, b and c lie on one line within a tolerance
// relative to the triangle's longest side.
func Collinear(a, b, c Point, relTol float64) bool {
	l := math.Max(a.Dist(b), math.Max(b.Dist(c), a.Dist(c)))
	if l == 0 {
		return true
	}
	// |cross| is twice the triangle area; dividing by l^2 makes it scale free.
	return math.Abs(Cross(a, b, c))/(l*l) <= relTol
}

// SortUnique returns a copy of pts sorted by X then Y with exact duplicates
// removed.
func SortUnique(pts []Point) []Point {
	p := append([]Point(nil), pts...)
	sortPoints(p)
	return removeDuplicatePoints(p)
}

func sortPoints(p []Point) {
	// insertion sort, inputs are a handful of user clicks
	for i := 1; i < len(p); i++ {
		v := p[i]
		j := i - 1
		for j >= 0 && v.Less(p[j]) {
			p[j+1] = p[j]
			j--
		}
		p[j+1] = v
	}
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:0]
	for i, pt := range p {
		if i == 0 || pt != q[len(q)-1] {
			q = append(q, pt)
		}
	}
	return q
}
