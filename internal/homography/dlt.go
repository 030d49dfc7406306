package homography

import (
	"math"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
)

// pivotTolerance is the smallest usable pivot relative to the largest
// coefficient of the system.
const pivotTolerance = 1e-12

// computeHomography computes the 3x3 matrix H mapping p[i] -> q[i] with
// h22 fixed to 1. Both point sets are normalised first (centroid at the
// origin, mean distance sqrt(2)) so the pivot test does not depend on the
// coordinate scale. ok is false when the correspondence system is singular.
func computeHomography(p, q [4]geometry.Point) (Matrix, bool) {
	tp, np, ok := normalize(p)
	if !ok {
		return Matrix{}, false
	}
	tq, nq, ok := normalize(q)
	if !ok {
		return Matrix{}, false
	}
	hn, ok := solveDLT(np, nq)
	if !ok {
		return Matrix{}, false
	}
	h := tq.inverse().Mul(hn).Mul(tp.matrix())
	largest := 0.0
	for _, v := range h {
		largest = math.Max(largest, math.Abs(v))
	}
	if math.Abs(h[8]) <= largest*pivotTolerance {
		return Matrix{}, false
	}
	h = h.Normalized()
	if !h.IsFinite() {
		return Matrix{}, false
	}
	return h, true
}

// similarity is x -> s*(x - c).
type similarity struct {
	s      float64
	cx, cy float64
}

func (t similarity) matrix() Matrix {
	return Matrix{t.s, 0, -t.s * t.cx, 0, t.s, -t.s * t.cy, 0, 0, 1}
}

func (t similarity) inverse() Matrix {
	return Matrix{1 / t.s, 0, t.cx, 0, 1 / t.s, t.cy, 0, 0, 1}
}

// normalize moves the centroid of pts to the origin and scales their mean
// distance from it to sqrt(2).
func normalize(pts [4]geometry.Point) (similarity, [4]geometry.Point, bool) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= 4
	cy /= 4
	mean := 0.0
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= 4
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return similarity{}, pts, false
	}
	t := similarity{s: math.Sqrt2 / mean, cx: cx, cy: cy}
	var out [4]geometry.Point
	for i, p := range pts {
		out[i] = geometry.Pt(t.s*(p.X-cx), t.s*(p.Y-cy))
	}
	return t, out, true
}

// solveDLT solves the 8x8 system for h00..h21 with h22 = 1.
func solveDLT(p, q [4]geometry.Point) (Matrix, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Matrix{}, false
	}
	return Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	scale := 0.0
	for r := range 8 {
		for c := range 8 {
			scale = math.Max(scale, math.Abs(a[r][c]))
		}
	}
	if scale == 0 {
		return [8]float64{}, false
	}
	minPivot := scale * pivotTolerance

	for col := range 8 {
		pivot := findPivotRow(&a, col)
		if math.Abs(a[pivot][col]) <= minPivot {
			return [8]float64{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}
		normalizeRow(&a, &b, col)
		eliminateColumn(&a, &b, col)
	}

	for i := range 8 {
		if math.IsNaN(b[i]) || math.IsInf(b[i], 0) {
			return [8]float64{}, false
		}
	}
	return b, true
}

func findPivotRow(a *[8][8]float64, col int) int {
	pivot := col
	maxAbs := math.Abs(a[col][col])
	for r := col + 1; r < 8; r++ {
		if v := math.Abs(a[r][col]); v > maxAbs {
			maxAbs = v
			pivot = r
		}
	}
	return pivot
}

func normalizeRow(a *[8][8]float64, b *[8]float64, row int) {
	div := a[row][row]
	for c := row; c < 8; c++ {
		a[row][c] /= div
	}
	b[row] /= div
}

func eliminateColumn(a *[8][8]float64, b *[8]float64, col int) {
	for r := range 8 {
		if r == col {
			continue
		}
		factor := a[r][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			a[r][c] -= factor * a[col][c]
		}
		b[r] -= factor * b[col]
	}
}
