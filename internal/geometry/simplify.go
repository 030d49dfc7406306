package geometry

import "math"

// Perimeter returns the length of the closed polygon through pts.
func Perimeter(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	sum := 0.0
	for i := range pts {
		sum += pts[i].Dist(pts[(i+1)%len(pts)])
	}
	return sum
}

// SimplifyPolygon reduces the number of points in an open polyline using the
// Douglas-Peucker algorithm with tolerance epsilon. Endpoints are always kept.
func SimplifyPolygon(pts []Point, epsilon float64) []Point {
	if len(pts) <= 2 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}
	keep := make([]bool, len(pts))
	keep[0] = true
	keep[len(pts)-1] = true
	dpSimplify(pts, 0, len(pts)-1, epsilon, keep)
	return collect(pts, keep)
}

// SimplifyClosed applies Douglas-Peucker to a closed polygon. The ring is
// split at a pair of mutually distant vertices (the vertex farthest from the
// first one, and the vertex farthest from that) and both chains are
// simplified independently, so the result keeps at least those two vertices.
func SimplifyClosed(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 3 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}
	a := farthestFrom(pts, 0)
	b := farthestFrom(pts, a)

	// Rotate the ring so a sits at index 0 and close it for the second chain.
	ring := make([]Point, n+1)
	for i := range n {
		ring[i] = pts[(a+i)%n]
	}
	ring[n] = ring[0]
	split := (b - a + n) % n

	keep := make([]bool, n+1)
	keep[0] = true
	keep[split] = true
	dpSimplify(ring, 0, split, epsilon, keep)
	dpSimplify(ring, split, n, epsilon, keep)
	return collect(ring[:n], keep[:n])
}

func farthestFrom(pts []Point, i int) int {
	far, best := i, -1.0
	for j := range pts {
		if d := pts[i].Dist(pts[j]); d > best {
			far, best = j, d
		}
	}
	return far
}

func collect(pts []Point, keep []bool) []Point {
	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func dpSimplify(pts []Point, start, end int, eps float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	index := -1
	a := pts[start]
	b := pts[end]
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist > eps {
		keep[index] = true
		dpSimplify(pts, start, index, eps, keep)
		dpSimplify(pts, index, end, eps, keep)
	}
}

// perpendicularDistance is the distance from p to the line through a and b,
// or to a itself when a == b.
func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	if vx == 0 && vy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	num := math.Abs((p.X-a.X)*vy - (p.Y-a.Y)*vx)
	return num / math.Hypot(vx, vy)
}
