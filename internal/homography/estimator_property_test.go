package homography

import (
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
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

// genQuad yields convex TL, TR, BR, BL quads inside a 1280x720 frame.
func genQuad() gopter.Gen {
	return gopter.CombineGens(
		genIn(0, 400, 0, 240),
		genIn(880, 1280, 0, 240),
		genIn(880, 1280, 480, 720),
		genIn(0, 400, 480, 720),
	).Map(func(vals []interface{}) [4]geometry.Point {
		return [4]geometry.Point{
			vals[0].(geometry.Point),
			vals[1].(geometry.Point),
			vals[2].(geometry.Point),
			vals[3].(geometry.Point),
		}
	})
}

func TestEstimate_RoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("forward reproduces the quad and composes to identity", prop.ForAll(
		func(q [4]geometry.Point) bool {
			res, err := Estimate(q)
			if err != nil {
				return false
			}
			for i, d := range res.Size.Corners() {
				p, ok := res.Forward.Apply(d)
				if !ok || p.Dist(q[i]) > RoundTripTolerance {
					return false
				}
			}
			return NearIdentity(res.Forward.Mul(res.Inverse).Normalized(), RoundTripTolerance) &&
				res.Size.Width >= MinRectSide && res.Size.Height >= MinRectSide
		},
		genQuad(),
	))

	properties.TestingRun(t)
}
