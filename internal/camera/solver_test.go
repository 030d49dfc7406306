package camera

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/homography"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticHomography builds H = s*K[r1 r2 t] for a camera rotated by alpha
// about x after gamma about z.
func syntheticHomography(f, cx, cy, alpha, gamma float64, t Vec3, s float64) (homography.Matrix, Mat3) {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	cg, sg := math.Cos(gamma), math.Sin(gamma)
	rx := Mat3{{1, 0, 0}, {0, ca, -sa}, {0, sa, ca}}
	rz := Mat3{{cg, -sg, 0}, {sg, cg, 0}, {0, 0, 1}}
	R := mul(rx, rz)

	k := Intrinsics{F: f, Cx: cx, Cy: cy}.Matrix()
	cols := [3]Vec3{
		{R[0][0], R[1][0], R[2][0]},
		{R[0][1], R[1][1], R[2][1]},
		t,
	}
	var h homography.Matrix
	for c := range 3 {
		for r := range 3 {
			v := 0.0
			for i := range 3 {
				v += k[r][i] * cols[c][i]
			}
			h[3*r+c] = s * v
		}
	}
	return h, R
}

func mul(a, b Mat3) Mat3 {
	var out Mat3
	for i := range 3 {
		for j := range 3 {
			for k := range 3 {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func transpose(a Mat3) Mat3 {
	var out Mat3
	for i := range 3 {
		for j := range 3 {
			out[i][j] = a[j][i]
		}
	}
	return out
}

func det(m Mat3) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func quatToMatrix(q Quaternion) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

func assertMat3InDelta(t *testing.T, want, got Mat3, delta float64) {
	t.Helper()
	for i := range 3 {
		for j := range 3 {
			assert.InDelta(t, want[i][j], got[i][j], delta, "[%d][%d]", i, j)
		}
	}
}

func TestSolve_RecoversSyntheticCamera(t *testing.T) {
	trueT := Vec3{-0.5, -0.3, 4}
	h, trueR := syntheticHomography(800, 640, 360, -0.9, 0.3, trueT, 2.5)

	pose, err := Solve(h, 1280, 720)
	require.NoError(t, err)

	assert.False(t, pose.Fallback.Applied)
	assert.InDelta(t, 800, pose.Intrinsics.F, 1e-6)
	assert.Equal(t, 640.0, pose.Intrinsics.Cx)
	assert.Equal(t, 360.0, pose.Intrinsics.Cy)
	assertMat3InDelta(t, trueR, pose.R, 1e-9)
	for i := range 3 {
		assert.InDelta(t, trueT[i], pose.T[i], 1e-9)
	}

	// C = -R^T t
	rt := transpose(trueR)
	for i := range 3 {
		want := -(rt[i][0]*trueT[0] + rt[i][1]*trueT[1] + rt[i][2]*trueT[2])
		assert.InDelta(t, want, pose.Center[i], 1e-9)
	}

	// Render frame: R_render = B R^T B, C_render = B C.
	b := [3]float64{1, -1, -1}
	var wantRender Mat3
	for i := range 3 {
		for j := range 3 {
			wantRender[i][j] = b[i] * rt[i][j] * b[j]
		}
		assert.InDelta(t, b[i]*pose.Center[i], pose.Render.Position[i], 1e-12)
	}
	assertMat3InDelta(t, wantRender, quatToMatrix(pose.Render.Quaternion), 1e-9)

	assert.InDelta(t, 2*math.Atan(360.0/800.0)*180/math.Pi, pose.Render.FovYDeg, 1e-9)
}

func TestSolve_FallbackWhenFocalSquaredNegative(t *testing.T) {
	h := homography.Matrix{1, 0, 0, 0, 1, 0, -0.001, -0.001, 1}

	pose, err := Solve(h, 200, 200)
	require.NoError(t, err)

	assert.True(t, pose.Fallback.Applied)
	assert.Equal(t, ReasonNonPositive, pose.Fallback.Reason)
	assert.InDelta(t, -220000.0, pose.Fallback.FocalSquared, 1e-6)
	assert.Equal(t, 240.0, pose.Fallback.Focal)
	assert.Equal(t, 240.0, pose.Intrinsics.F)
	assert.InDelta(t, FovY(240, 200), pose.Render.FovYDeg, 1e-12)
}

func TestSolve_FallbackForFrontoParallelPlane(t *testing.T) {
	pose, err := Solve(homography.Identity(), 200, 200)
	require.NoError(t, err)

	assert.True(t, pose.Fallback.Applied)
	assert.Equal(t, ReasonAtInfinity, pose.Fallback.Reason)
	assert.Equal(t, 240.0, pose.Intrinsics.F)

	assertMat3InDelta(t, Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, pose.R, 1e-12)
	assert.InDeltaSlice(t, []float64{-100, -100, 240}, pose.T[:], 1e-9)
	assert.InDeltaSlice(t, []float64{100, 100, -240}, pose.Center[:], 1e-9)
	assert.InDeltaSlice(t, []float64{100, -100, 240}, pose.Render.Position[:], 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1}, pose.Render.Quaternion[:], 1e-12)
}

func TestSolve_SymmetricQuadUsesHeuristicFocal(t *testing.T) {
	q := [4]geometry.Point{{X: 0, Y: 0}, {X: 111, Y: 0}, {X: 125, Y: 125}, {X: 0, Y: 111}}
	res, err := homography.Estimate(q)
	require.NoError(t, err)

	pose, err := Solve(res.Forward, 200, 200)
	require.NoError(t, err)

	assert.True(t, pose.Fallback.Applied)
	assert.Equal(t, 240.0, pose.Intrinsics.F)
	assert.InDelta(t, 45.2397, pose.Render.FovYDeg, 1e-3)
}

func TestSolve_CustomFallbackScale(t *testing.T) {
	pose, err := SolveWithOptions(homography.Identity(), 640, 480, Options{FallbackScale: 1.5, FocalEpsilon: 1e-6})
	require.NoError(t, err)
	assert.Equal(t, 960.0, pose.Intrinsics.F)
}

func TestSolve_Errors(t *testing.T) {
	tests := []struct {
		name          string
		h             homography.Matrix
		width, height int
	}{
		{"NaN element", homography.Matrix{math.NaN(), 0, 0, 0, 1, 0, 0, 0, 1}, 200, 200},
		{"Inf element", homography.Matrix{1, 0, math.Inf(1), 0, 1, 0, 0, 0, 1}, 200, 200},
		{"zero first column", homography.Matrix{0, 0, 0, 0, 1, 0, 0, 0, 1}, 200, 200},
		{"zero image size", homography.Identity(), 0, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose, err := Solve(tt.h, tt.width, tt.height)
			require.Error(t, err)
			assert.Nil(t, pose)
			assert.True(t, geomerr.IsComputation(err))
		})
	}
}

func TestQuaternionFromMatrix(t *testing.T) {
	s := math.Sqrt2 / 2
	tests := []struct {
		name string
		m    Mat3
		want Quaternion
	}{
		{"identity", Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Quaternion{0, 0, 0, 1}},
		{"90 about z", Mat3{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}, Quaternion{0, 0, s, s}},
		{"180 about x", Mat3{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}}, Quaternion{1, 0, 0, 0}},
		{"180 about y", Mat3{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}}, Quaternion{0, 1, 0, 0}},
		{"180 about z", Mat3{{-1, 0, 0}, {0, -1, 0}, {0, 0, 1}}, Quaternion{0, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuaternionFromMatrix(tt.m)
			assert.InDeltaSlice(t, tt.want[:], got[:], 1e-12)
		})
	}
}

func TestFovY(t *testing.T) {
	assert.InDelta(t, 90.0, FovY(100, 200), 1e-12)
	assert.InDelta(t, 45.2397, FovY(240, 200), 1e-4)
}
