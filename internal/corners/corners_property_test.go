package corners

import (
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genIn(x0, x1, y0, y1 float64) gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(x0, x1),
		gen.Float64Range(y0, y1),
	).Map(func(vals []interface{}) geometry.Point {
		return geometry.Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

// genQuadScene returns a convex quad, one corner per 40x40 box at the
// corners of a 200x200 area, plus interior points near the centre. Index
// 0..3 of the result are TL, TR, BR, BL.
func genQuadScene() gopter.Gen {
	return gopter.CombineGens(
		genIn(0, 40, 0, 40),
		genIn(160, 200, 0, 40),
		genIn(160, 200, 160, 200),
		genIn(0, 40, 160, 200),
		gen.SliceOfN(4, genIn(80, 120, 80, 120)),
	).Map(func(vals []interface{}) []geometry.Point {
		out := []geometry.Point{
			vals[0].(geometry.Point),
			vals[1].(geometry.Point),
			vals[2].(geometry.Point),
			vals[3].(geometry.Point),
		}
		return append(out, vals[4].([]geometry.Point)...)
	})
}

func shuffled(in []geometry.Point, seed int64) []geometry.Point {
	out := append([]geometry.Point(nil), in...)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestSelect_PermutationInvariance(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("same quad for any input order", prop.ForAll(
		func(scene []geometry.Point, seed int64) bool {
			a, errA := Select(scene)
			b, errB := Select(shuffled(scene, seed))
			if errA != nil || errB != nil {
				return false
			}
			return cmp.Diff(a, b) == ""
		},
		genQuadScene(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// genBulgedOctagonScene returns a near-square whose edge midpoints bulge out
// slightly, so the hull has 8 vertices and simplification is needed.
func genBulgedOctagonScene() gopter.Gen {
	return gopter.CombineGens(
		genIn(0, 3, 0, 3),
		genIn(197, 200, 0, 3),
		genIn(197, 200, 197, 200),
		genIn(0, 3, 197, 200),
		gen.SliceOfN(4, gen.Float64Range(0.5, 2)),
	).Map(func(vals []interface{}) []geometry.Point {
		b := vals[4].([]float64)
		return []geometry.Point{
			vals[0].(geometry.Point),
			vals[1].(geometry.Point),
			vals[2].(geometry.Point),
			vals[3].(geometry.Point),
			{X: 100, Y: -b[0]},
			{X: 200 + b[1], Y: 100},
			{X: 100, Y: 200 + b[2]},
			{X: -b[3], Y: 100},
		}
	})
}

// genTriangleScene returns a triangle hull with interior points, which sends
// selection down the extrema path.
func genTriangleScene() gopter.Gen {
	return gopter.CombineGens(
		genIn(0, 20, 0, 20),
		genIn(180, 200, 0, 20),
		genIn(0, 20, 180, 200),
		gen.SliceOfN(2, genIn(40, 60, 40, 60)),
	).Map(func(vals []interface{}) []geometry.Point {
		out := []geometry.Point{
			vals[0].(geometry.Point),
			vals[1].(geometry.Point),
			vals[2].(geometry.Point),
		}
		return append(out, vals[3].([]geometry.Point)...)
	})
}

func TestSelectDetailed_PermutationInvarianceByMethod(t *testing.T) {
	properties := gopter.NewProperties(nil)

	sameSelection := func(method Method) func([]geometry.Point, int64) bool {
		return func(scene []geometry.Point, seed int64) bool {
			a, errA := SelectDetailed(scene)
			b, errB := SelectDetailed(shuffled(scene, seed))
			if errA != nil || errB != nil {
				return false
			}
			return a.Method == method && cmp.Diff(a, b) == ""
		}
	}

	properties.Property("simplify path ignores input order", prop.ForAll(
		sameSelection(MethodSimplify),
		genBulgedOctagonScene(),
		gen.Int64(),
	))
	properties.Property("extrema path ignores input order", prop.ForAll(
		sameSelection(MethodExtrema),
		genTriangleScene(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestSelect_OrderingLaw(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("TL first, clockwise, corners recovered", prop.ForAll(
		func(scene []geometry.Point) bool {
			q, err := Select(scene)
			if err != nil {
				return false
			}
			want := Quad{scene[0], scene[1], scene[2], scene[3]}
			if q != want || !IsClockwise(q) {
				return false
			}
			for _, p := range q[1:] {
				if p.X+p.Y < q[0].X+q[0].Y {
					return false
				}
			}
			return true
		},
		genQuadScene(),
	))

	properties.TestingRun(t)
}
