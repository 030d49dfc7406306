// Package homography derives the canonical rectangle for a quadrilateral and
// the projective transforms between the two.
package homography

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
)

const (
	// MinRectSide is the smallest width or height of the target rectangle.
	MinRectSide = 64
	// RoundTripTolerance bounds corner reprojection error in pixels.
	RoundTripTolerance = 1e-3
	// collinearTolerance is the relative triangle area below which three
	// corners are treated as collinear.
	collinearTolerance = 1e-9
	// maxRectSide keeps rectangle sides inside the int range.
	maxRectSide = math.MaxInt32
)

const stage = "homography"

// Size is the target rectangle in plane units.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Result holds the rectangle and the transforms between it and the quad.
type Result struct {
	Size Size
	// Forward maps rectangle coordinates to image pixels.
	Forward Matrix
	// Inverse maps image pixels to rectangle coordinates.
	Inverse Matrix
}

// RectSize returns the rectangle size for quad, whose corners are in TL, TR,
// BR, BL order.
func RectSize(quad [4]geometry.Point) Size {
	top := quad[1].Dist(quad[0])
	bottom := quad[2].Dist(quad[3])
	left := quad[3].Dist(quad[0])
	right := quad[2].Dist(quad[1])
	return Size{Width: side(math.Max(top, bottom)), Height: side(math.Max(left, right))}
}

func side(length float64) int {
	length = math.Round(length)
	if !(length < maxRectSide) {
		return maxRectSide
	}
	return max(MinRectSide, int(length))
}

// Corners returns the rectangle corners (0,0), (W-1,0), (W-1,H-1), (0,H-1).
func (s Size) Corners() [4]geometry.Point {
	w, h := float64(s.Width-1), float64(s.Height-1)
	return [4]geometry.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// Estimate computes the rectangle and both transforms for quad. Degenerate
// quads (repeated or collinear corners) and singular systems fail with a
// *geomerr.ComputationError and no matrices.
func Estimate(quad [4]geometry.Point) (*Result, error) {
	for _, p := range quad {
		if !p.IsFinite() {
			return nil, geomerr.Computation(stage, fmt.Errorf("corner %v: %w", p, geomerr.ErrNonFinite))
		}
	}
	if err := checkDegenerate(quad); err != nil {
		return nil, err
	}

	size := RectSize(quad)
	dst := size.Corners()

	fwd, ok := computeHomography(dst, quad)
	if !ok {
		return nil, geomerr.Computation(stage, fmt.Errorf("rectangle to quad: %w", geomerr.ErrSingular))
	}
	inv, ok := computeHomography(quad, dst)
	if !ok {
		return nil, geomerr.Computation(stage, fmt.Errorf("quad to rectangle: %w", geomerr.ErrSingular))
	}

	res := &Result{Size: size, Forward: fwd, Inverse: inv}
	if err := res.Check(quad); err != nil {
		return nil, err
	}
	return res, nil
}

// checkDegenerate rejects quads where any three corners are collinear,
// which includes repeated corners.
func checkDegenerate(q [4]geometry.Point) error {
	for skip := range 4 {
		var tri []geometry.Point
		for i, p := range q {
			if i != skip {
				tri = append(tri, p)
			}
		}
		if geometry.Collinear(tri[0], tri[1], tri[2], collinearTolerance) {
			return geomerr.Computation(stage, fmt.Errorf("corners %v, %v, %v are collinear: %w",
				tri[0], tri[1], tri[2], geomerr.ErrDegenerate))
		}
	}
	return nil
}

// Check verifies that Forward reproduces quad from the rectangle corners and
// that Forward and Inverse compose to the identity.
func (r *Result) Check(quad [4]geometry.Point) error {
	if !r.Forward.IsFinite() || !r.Inverse.IsFinite() {
		return geomerr.Computation(stage, geomerr.ErrNonFinite)
	}
	for i, d := range r.Size.Corners() {
		p, ok := r.Forward.Apply(d)
		if !ok || p.Dist(quad[i]) > RoundTripTolerance {
			return geomerr.Computation(stage, fmt.Errorf("corner %d reprojects to %v, want %v: %w",
				i, p, quad[i], geomerr.ErrSingular))
		}
	}
	id := r.Forward.Mul(r.Inverse).Normalized()
	if !NearIdentity(id, RoundTripTolerance) {
		return geomerr.Computation(stage, fmt.Errorf("forward*inverse is not identity: %v: %w", id, geomerr.ErrSingular))
	}
	return nil
}

// NearIdentity reports whether every element of m is within tol of the
// identity.
func NearIdentity(m Matrix, tol float64) bool {
	id := Identity()
	for i := range m {
		if math.Abs(m[i]-id[i]) > tol {
			return false
		}
	}
	return true
}
