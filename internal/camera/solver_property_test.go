package camera

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/homography"
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

func validPose(p *Pose) bool {
	rtr := mul(transpose(p.R), p.R)
	for i := range 3 {
		for j := range 3 {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(rtr[i][j]-want) > 1e-6 {
				return false
			}
		}
	}
	if math.Abs(det(p.R)-1) > 1e-6 {
		return false
	}
	q := p.Render.Quaternion
	if math.Abs(math.Sqrt(q[0]*q[0]+q[1]*q[1]+q[2]*q[2]+q[3]*q[3])-1) > 1e-6 {
		return false
	}
	return p.Intrinsics.F > 0 && p.Render.FovYDeg > 0 && p.Render.FovYDeg < 180
}

func TestSolve_PoseInvariantsForImageQuads(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rotation is proper, quaternion is unit, fov in range", prop.ForAll(
		func(q [4]geometry.Point) bool {
			res, err := homography.Estimate(q)
			if err != nil {
				return false
			}
			pose, err := Solve(res.Forward, 1280, 720)
			if err != nil {
				return false
			}
			return validPose(pose)
		},
		genQuad(),
	))

	properties.TestingRun(t)
}

func TestSolve_RecoversFocalProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("synthetic cameras are recovered", prop.ForAll(
		func(f, alpha, gamma float64) bool {
			h, trueR := syntheticHomography(f, 640, 360, alpha, gamma, Vec3{0.2, -0.1, 5}, 1.7)
			pose, err := Solve(h, 1280, 720)
			if err != nil || pose.Fallback.Applied || !validPose(pose) {
				return false
			}
			if math.Abs(pose.Intrinsics.F-f) > 1e-6*f {
				return false
			}
			for i := range 3 {
				for j := range 3 {
					if math.Abs(pose.R[i][j]-trueR[i][j]) > 1e-6 {
						return false
					}
				}
			}
			return true
		},
		gen.Float64Range(300, 3000),
		gen.Float64Range(-1.3, -0.3),
		gen.Float64Range(0.1, 1.4),
	))

	properties.TestingRun(t)
}
