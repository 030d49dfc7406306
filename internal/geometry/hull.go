package geometry

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. The hull is returned in counter-clockwise order
// (y-up sense) without repeating the first point. Collinear boundary points
// are dropped.
func ConvexHull(pts []Point) []Point {
	p := SortUnique(pts)
	if len(p) <= 2 {
		return p
	}
	lower := halfHull(p, false)
	upper := halfHull(p, true)
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func halfHull(p []Point, reverse bool) []Point {
	h := make([]Point, 0, len(p))
	for i := range p {
		pt := p[i]
		if reverse {
			pt = p[len(p)-1-i]
		}
		for len(h) >= 2 && Cross(h[len(h)-2], h[len(h)-1], pt) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, pt)
	}
	return h
}
