// Package corners reduces an arbitrary set of user-marked image points to
// the four ordered corners of a quadrilateral.
package corners

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
)

const (
	// MaxSimplifySteps bounds the tolerance sweep of the hull simplifier.
	MaxSimplifySteps = 79
	// SimplifyStep is the tolerance increment as a fraction of the hull perimeter.
	SimplifyStep = 0.01
)

// Quad holds four corners in TL, TR, BR, BL order.
type Quad [4]geometry.Point

// Points returns the corners as a slice.
func (q Quad) Points() []geometry.Point { return q[:] }

// Method names the strategy that produced the corners.
type Method string

const (
	MethodHull     Method = "hull"
	MethodSimplify Method = "simplify"
	MethodExtrema  Method = "extrema"
)

// Selection is a Quad together with how it was found.
type Selection struct {
	Quad   Quad
	Method Method
	// Tolerance is the Douglas-Peucker epsilon that produced the corners when
	// Method is MethodSimplify.
	Tolerance float64
}

// Select picks and orders four corners from points. The result depends only
// on the set of points, not on their order. Fewer than 4 distinct points
// yields an *geomerr.InsufficientPointsError.
func Select(points []geometry.Point) (Quad, error) {
	s, err := SelectDetailed(points)
	if err != nil {
		return Quad{}, err
	}
	return s.Quad, nil
}

// SelectDetailed is Select but also reports the strategy used.
func SelectDetailed(points []geometry.Point) (Selection, error) {
	pts := geometry.SortUnique(points)
	if len(pts) < 4 {
		return Selection{}, &geomerr.InsufficientPointsError{Distinct: len(pts)}
	}

	hull := geometry.ConvexHull(pts)
	if len(hull) == 4 {
		return Selection{Quad: Order(hull), Method: MethodHull}, nil
	}

	if len(hull) > 4 {
		perimeter := geometry.Perimeter(hull)
		for k := 1; k <= MaxSimplifySteps; k++ {
			eps := perimeter * SimplifyStep * float64(k)
			approx := geometry.SimplifyClosed(hull, eps)
			if len(approx) > 4 {
				continue
			}
			if len(approx) == 4 {
				return Selection{Quad: Order(approx), Method: MethodSimplify, Tolerance: eps}, nil
			}
			break
		}
	}

	return Selection{Quad: Order(extrema(pts)), Method: MethodExtrema}, nil
}

// extrema picks the points minimising and maximising x+y, then among the
// rest those minimising and maximising x-y. pts must be canonically sorted
// and hold at least 4 distinct points; ties resolve to the earliest point.
func extrema(pts []geometry.Point) []geometry.Point {
	used := make([]bool, len(pts))
	picked := make([]int, 0, 4)
	pick := func(i int) {
		if i >= 0 && !used[i] {
			used[i] = true
			picked = append(picked, i)
		}
	}

	sum := func(p geometry.Point) float64 { return p.X + p.Y }
	diff := func(p geometry.Point) float64 { return p.X - p.Y }

	pick(argBest(pts, nil, sum, false))
	pick(argBest(pts, nil, sum, true))
	pick(argBest(pts, used, diff, false))
	pick(argBest(pts, used, diff, true))

	// Pad with the next unused points when extrema coincide.
	for i := 0; len(picked) < 4 && i < len(pts); i++ {
		pick(i)
	}

	out := make([]geometry.Point, len(picked))
	for i, idx := range picked {
		out[i] = pts[idx]
	}
	return out
}

func argBest(pts []geometry.Point, skip []bool, score func(geometry.Point) float64, maximize bool) int {
	best := -1
	bestScore := 0.0
	for i, p := range pts {
		if skip != nil && skip[i] {
			continue
		}
		s := score(p)
		if best == -1 || (maximize && s > bestScore) || (!maximize && s < bestScore) {
			best, bestScore = i, s
		}
	}
	return best
}

// Order arranges four points clockwise on screen (x right, y down) starting
// at the point with the smallest x+y. Ties on x+y go to the smaller y.
func Order(pts []geometry.Point) Quad {
	c := geometry.Centroid(pts)
	type entry struct {
		p     geometry.Point
		angle float64
		dist  float64
	}
	es := make([]entry, len(pts))
	for i, p := range pts {
		es[i] = entry{p: p, angle: math.Atan2(p.Y-c.Y, p.X-c.X), dist: p.Dist(c)}
	}
	// With y pointing down, increasing atan2 sweeps clockwise on screen.
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].angle != es[j].angle {
			return es[i].angle < es[j].angle
		}
		if es[i].dist != es[j].dist {
			return es[i].dist < es[j].dist
		}
		return es[i].p.Less(es[j].p)
	})

	start := 0
	for i := 1; i < len(es); i++ {
		si, sb := es[i].p.X+es[i].p.Y, es[start].p.X+es[start].p.Y
		if si < sb || (si == sb && es[i].p.Y < es[start].p.Y) {
			start = i
		}
	}

	var q Quad
	for i := range q {
		q[i] = es[(start+i)%len(es)].p
	}
	return q
}

// IsClockwise reports whether q winds clockwise on screen (positive signed
// area in a y-down frame).
func IsClockwise(q Quad) bool {
	area := 0.0
	for i := range q {
		a, b := q[i], q[(i+1)%4]
		area += a.X*b.Y - b.X*a.Y
	}
	return area > 0
}

// Pairs returns the corners as [x, y] pairs.
func (q Quad) Pairs() [][2]float64 {
	out := make([][2]float64, len(q))
	for i, p := range q {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

// MarshalJSON encodes q as four [x, y] pairs.
func (q Quad) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Pairs())
}

// UnmarshalJSON accepts four [x, y] pairs.
func (q *Quad) UnmarshalJSON(data []byte) error {
	var pairs [][2]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	if len(pairs) != 4 {
		return fmt.Errorf("quad: expected 4 corners, got %d", len(pairs))
	}
	for i, p := range pairs {
		q[i] = geometry.Point{X: p[0], Y: p[1]}
	}
	return nil
}

// MarshalYAML encodes q as four [x, y] pairs.
func (q Quad) MarshalYAML() (interface{}, error) {
	return q.Pairs(), nil
}
