package geometry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPoint generates a random point.
func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

func TestConvexHull_IsConvexAndContainsInput(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull turns left and encloses every point", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			n := len(hull)
			for i := range hull {
				if Cross(hull[i], hull[(i+1)%n], hull[(i+2)%n]) <= 0 {
					return false
				}
			}
			for _, p := range points {
				for i := range hull {
					if Cross(hull[i], hull[(i+1)%n], p) < -1e-7 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, genPoint()),
	))

	properties.TestingRun(t)
}

func TestSimplifyClosed_SubsetOfInput(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("simplified ring only contains input vertices", prop.ForAll(
		func(points []Point, epsilon float64) bool {
			hull := ConvexHull(points)
			out := SimplifyClosed(hull, epsilon)
			if len(out) > len(hull) {
				return false
			}
			for _, p := range out {
				found := false
				for _, q := range hull {
					if p == q {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(15, genPoint()),
		gen.Float64Range(0.1, 50.0),
	))

	properties.TestingRun(t)
}
