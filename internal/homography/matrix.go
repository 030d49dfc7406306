package homography

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major 3x3 projective transform.
type Matrix [9]float64

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1} }

// At returns the element at row r, column c.
func (m Matrix) At(r, c int) float64 { return m[3*r+c] }

// Column returns column c as a 3-vector.
func (m Matrix) Column(c int) [3]float64 { return [3]float64{m[c], m[3+c], m[6+c]} }

// Apply maps p through m. ok is false when p maps to the line at infinity.
func (m Matrix) Apply(p geometry.Point) (geometry.Point, bool) {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if w == 0 {
		return geometry.Point{}, false
	}
	return geometry.Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}, true
}

// ApplyVec multiplies m by the homogeneous vector v without normalising.
func (m Matrix) ApplyVec(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Mul returns m*n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := range 3 {
		for c := range 3 {
			out[3*r+c] = m[3*r]*n[c] + m[3*r+1]*n[3+c] + m[3*r+2]*n[6+c]
		}
	}
	return out
}

// Det returns the determinant of m.
func (m Matrix) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Normalized scales m so that its bottom-right element is 1. Matrices with
// a zero bottom-right element are returned unchanged.
func (m Matrix) Normalized() Matrix {
	if m[8] == 0 {
		return m
	}
	var out Matrix
	for i, v := range m {
		out[i] = v / m[8]
	}
	return out
}

// IsFinite reports whether every element is a finite number.
func (m Matrix) IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Dense returns m as a gonum matrix.
func (m Matrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), m[:]...))
}

// FromDense copies a 3x3 gonum matrix into a Matrix.
func FromDense(d mat.Matrix) Matrix {
	var out Matrix
	for r := range 3 {
		for c := range 3 {
			out[3*r+c] = d.At(r, c)
		}
	}
	return out
}

// Inverse returns the normalised inverse of m.
func (m Matrix) Inverse() (Matrix, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.Dense()); err != nil {
		return Matrix{}, fmt.Errorf("invert homography: %w", err)
	}
	out := FromDense(&inv)
	if !out.IsFinite() {
		return Matrix{}, errors.New("invert homography: non-finite result")
	}
	return out.Normalized(), nil
}

// Rows returns m as nested rows.
func (m Matrix) Rows() [][]float64 {
	return [][]float64{
		{m[0], m[1], m[2]},
		{m[3], m[4], m[5]},
		{m[6], m[7], m[8]},
	}
}

// MarshalJSON encodes m as three rows of three numbers.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Rows())
}

// UnmarshalJSON accepts three rows of three numbers.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != 3 {
		return fmt.Errorf("homography: expected 3 rows, got %d", len(rows))
	}
	for r, row := range rows {
		if len(row) != 3 {
			return fmt.Errorf("homography: row %d has %d columns", r, len(row))
		}
		copy(m[3*r:3*r+3], row)
	}
	return nil
}

// MarshalYAML encodes m as three rows.
func (m Matrix) MarshalYAML() (interface{}, error) {
	return m.Rows(), nil
}
