package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/homography"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

const stage = "pose"

// Fallback reasons.
const (
	ReasonNonPositive = "focal_squared_non_positive"
	ReasonAtInfinity  = "vanishing_point_at_infinity"
	ReasonNonFinite   = "focal_squared_non_finite"
)

// Options tunes the solver.
type Options struct {
	// FallbackScale multiplies max(width, height) to form the heuristic focal length.
	FallbackScale float64
	// FocalEpsilon is the largest f^2 still treated as a failed solve.
	FocalEpsilon float64
}

// DefaultOptions returns the standard solver settings.
func DefaultOptions() Options {
	return Options{FallbackScale: 1.2, FocalEpsilon: 1e-6}
}

// Solve decomposes the plane-to-image homography h for an image of the given
// size using DefaultOptions.
func Solve(h homography.Matrix, imageWidth, imageHeight int) (*Pose, error) {
	return SolveWithOptions(h, imageWidth, imageHeight, DefaultOptions())
}

// SolveWithOptions decomposes h into intrinsics, extrinsics and a render
// pose. A failed focal solve is replaced by the size heuristic and reported
// in Pose.Fallback. Any NaN or Inf fails with a *geomerr.ComputationError.
func SolveWithOptions(h homography.Matrix, imageWidth, imageHeight int, opts Options) (*Pose, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, geomerr.Computation(stage, fmt.Errorf("image size %dx%d: %w", imageWidth, imageHeight, geomerr.ErrDegenerate))
	}
	if !h.IsFinite() {
		return nil, geomerr.Computation(stage, fmt.Errorf("homography: %w", geomerr.ErrNonFinite))
	}
	if opts.FallbackScale <= 0 {
		opts.FallbackScale = DefaultOptions().FallbackScale
	}

	cx, cy := float64(imageWidth)/2, float64(imageHeight)/2
	f, fb := focalLength(h, cx, cy, imageWidth, imageHeight, opts)
	in := Intrinsics{F: f, Cx: cx, Cy: cy}

	R, t, err := extrinsics(h, in)
	if err != nil {
		return nil, err
	}

	// C = -R^T t
	var center Vec3
	for i := range 3 {
		for j := range 3 {
			center[i] -= R[j][i] * t[j]
		}
	}

	pose := &Pose{
		Intrinsics: in,
		R:          R,
		T:          t,
		Center:     center,
		Render:     renderPose(R, center, f, imageHeight),
		Fallback:   fb,
	}
	if !pose.finite() {
		return nil, geomerr.Computation(stage, geomerr.ErrNonFinite)
	}
	return pose, nil
}

// VanishingPoints maps the plane axis directions through h. ok is false for
// a vanishing point at infinity.
func VanishingPoints(h homography.Matrix) (v1, v2 [2]float64, ok1, ok2 bool) {
	v1, ok1 = vanish(h.Column(0))
	v2, ok2 = vanish(h.Column(1))
	return v1, v2, ok1, ok2
}

func vanish(v [3]float64) ([2]float64, bool) {
	scale := math.Max(math.Abs(v[0]), math.Abs(v[1]))
	if math.Abs(v[2]) <= 1e-12*scale || v[2] == 0 {
		return [2]float64{}, false
	}
	return [2]float64{v[0] / v[2], v[1] / v[2]}, true
}

// focalLength solves the orthogonality constraint of the two vanishing
// points for f, falling back to FallbackScale * max(width, height).
func focalLength(h homography.Matrix, cx, cy float64, w, ht int, opts Options) (float64, Fallback) {
	heuristic := opts.FallbackScale * float64(max(w, ht))

	v1, v2, ok1, ok2 := VanishingPoints(h)
	if !ok1 || !ok2 {
		return heuristic, Fallback{Applied: true, Reason: ReasonAtInfinity, Focal: heuristic}
	}
	f2 := -((v1[0]-cx)*(v2[0]-cx) + (v1[1]-cy)*(v2[1]-cy))
	switch {
	case math.IsNaN(f2) || math.IsInf(f2, 0):
		return heuristic, Fallback{Applied: true, Reason: ReasonNonFinite, Focal: heuristic}
	case f2 <= opts.FocalEpsilon:
		return heuristic, Fallback{Applied: true, Reason: ReasonNonPositive, Focal: heuristic, FocalSquared: f2}
	}
	return math.Sqrt(f2), Fallback{FocalSquared: f2}
}

// extrinsics recovers R and t from h = K [r1 r2 t] up to scale.
func extrinsics(h homography.Matrix, in Intrinsics) (Mat3, Vec3, error) {
	k := in.Matrix()
	K := mat.NewDense(3, 3, []float64{
		k[0][0], k[0][1], k[0][2],
		k[1][0], k[1][1], k[1][2],
		k[2][0], k[2][1], k[2][2],
	})
	var kinv mat.Dense
	if err := kinv.Inverse(K); err != nil {
		return Mat3{}, Vec3{}, geomerr.Computation(stage, fmt.Errorf("invert K: %w", geomerr.ErrSingular))
	}
	var a mat.Dense
	a.Mul(&kinv, h.Dense())

	col := func(c int) r3.Vector {
		return r3.Vector{X: a.At(0, c), Y: a.At(1, c), Z: a.At(2, c)}
	}
	h1, h2, h3 := col(0), col(1), col(2)

	n := h1.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Mat3{}, Vec3{}, geomerr.Computation(stage, fmt.Errorf("scale from |K^-1 h1| = %v: %w", n, geomerr.ErrNonFinite))
	}
	lambda := 1 / n

	r1 := h1.Mul(lambda)
	r2 := h2.Mul(lambda)
	r3v := r1.Cross(r2)
	t := h3.Mul(lambda)

	R, err := nearestRotation(r1, r2, r3v)
	if err != nil {
		return Mat3{}, Vec3{}, err
	}
	return R, Vec3{t.X, t.Y, t.Z}, nil
}

// nearestRotation orthogonalises the columns c1, c2, c3 to the closest proper
// rotation R = U V^T.
func nearestRotation(c1, c2, c3 r3.Vector) (Mat3, error) {
	m := mat.NewDense(3, 3, []float64{
		c1.X, c2.X, c3.X,
		c1.Y, c2.Y, c3.Y,
		c1.Z, c2.Z, c3.Z,
	})
	for _, v := range m.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Mat3{}, geomerr.Computation(stage, fmt.Errorf("rotation columns: %w", geomerr.ErrNonFinite))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return Mat3{}, geomerr.Computation(stage, errors.New("SVD factorization failed"))
	}
	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())

	if mat.Det(&r) < 0 {
		for i := range 3 {
			r.Set(i, 2, -r.At(i, 2))
		}
	}

	var out Mat3
	for i := range 3 {
		for j := range 3 {
			out[i][j] = r.At(i, j)
		}
	}
	return out, nil
}

// renderPose converts to the y-up, z-backward frame with B = diag(1,-1,-1):
// R_render = B R^T B, C_render = B C.
func renderPose(R Mat3, center Vec3, f float64, imageHeight int) RenderPose {
	b := [3]float64{1, -1, -1}
	var rr Mat3
	for i := range 3 {
		for j := range 3 {
			rr[i][j] = b[i] * R[j][i] * b[j]
		}
	}
	return RenderPose{
		Position:   Vec3{b[0] * center[0], b[1] * center[1], b[2] * center[2]},
		Quaternion: QuaternionFromMatrix(rr),
		FovYDeg:    FovY(f, imageHeight),
	}
}

// FovY returns the vertical field of view in degrees for focal length f.
func FovY(f float64, imageHeight int) float64 {
	return 2 * math.Atan((float64(imageHeight)/2)/f) * 180 / math.Pi
}

// quatEpsilon is the smallest w for which the trace formula is used.
const quatEpsilon = 1e-3

// QuaternionFromMatrix converts a rotation matrix to a unit quaternion
// (x, y, z, w) with w >= 0. The trace formula is used unless w is near zero,
// where the largest-diagonal branch takes over.
func QuaternionFromMatrix(m Mat3) Quaternion {
	tr := m[0][0] + m[1][1] + m[2][2]
	w := 0.5 * math.Sqrt(math.Max(0, 1+tr))

	var q quat.Number
	if w > quatEpsilon {
		s := 4 * w
		q = quat.Number{
			Real: w,
			Imag: (m[2][1] - m[1][2]) / s,
			Jmag: (m[0][2] - m[2][0]) / s,
			Kmag: (m[1][0] - m[0][1]) / s,
		}
	} else {
		q = largestDiagonal(m)
	}

	n := quat.Abs(q)
	if n == 0 {
		return Quaternion{0, 0, 0, 1}
	}
	q = quat.Scale(1/n, q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return Quaternion{q.Imag, q.Jmag, q.Kmag, q.Real}
}

func largestDiagonal(m Mat3) quat.Number {
	switch {
	case m[0][0] >= m[1][1] && m[0][0] >= m[2][2]:
		s := 2 * math.Sqrt(math.Max(0, 1+m[0][0]-m[1][1]-m[2][2]))
		return quat.Number{
			Real: (m[2][1] - m[1][2]) / s,
			Imag: s / 4,
			Jmag: (m[0][1] + m[1][0]) / s,
			Kmag: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] >= m[2][2]:
		s := 2 * math.Sqrt(math.Max(0, 1+m[1][1]-m[0][0]-m[2][2]))
		return quat.Number{
			Real: (m[0][2] - m[2][0]) / s,
			Imag: (m[0][1] + m[1][0]) / s,
			Jmag: s / 4,
			Kmag: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2 * math.Sqrt(math.Max(0, 1+m[2][2]-m[0][0]-m[1][1]))
		return quat.Number{
			Real: (m[1][0] - m[0][1]) / s,
			Imag: (m[0][2] + m[2][0]) / s,
			Jmag: (m[1][2] + m[2][1]) / s,
			Kmag: s / 4,
		}
	}
}

func (p *Pose) finite() bool {
	vals := []float64{p.Intrinsics.F, p.Render.FovYDeg}
	for i := range 3 {
		vals = append(vals, p.T[i], p.Center[i], p.Render.Position[i])
		vals = append(vals, p.R[i][:]...)
	}
	vals = append(vals, p.Render.Quaternion[:]...)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
