package corners

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(xy ...float64) []geometry.Point {
	out := make([]geometry.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geometry.Pt(xy[i], xy[i+1]))
	}
	return out
}

func TestSelect(t *testing.T) {
	square := Quad{{0, 0}, {100, 0}, {100, 100}, {0, 100}}

	tests := []struct {
		name   string
		input  []geometry.Point
		want   Quad
		method Method
	}{
		{
			name:   "ordered square",
			input:  pts(0, 0, 100, 0, 100, 100, 0, 100),
			want:   square,
			method: MethodHull,
		},
		{
			name:   "shuffled square",
			input:  pts(100, 100, 0, 100, 100, 0, 0, 0),
			want:   square,
			method: MethodHull,
		},
		{
			name:   "interior points ignored",
			input:  pts(50, 50, 0, 0, 30, 60, 100, 0, 100, 100, 0, 100, 70, 20),
			want:   square,
			method: MethodHull,
		},
		{
			name:   "slightly bulged edges simplified away",
			input:  pts(0, 0, 50, -1, 100, 0, 101, 50, 100, 100, 50, 101, 0, 100, -1, 50),
			want:   square,
			method: MethodSimplify,
		},
		{
			name:   "perspective trapezoid",
			input:  pts(300, 400, 60, 700, 700, 400, 940, 700),
			want:   Quad{{300, 400}, {700, 400}, {940, 700}, {60, 700}},
			method: MethodHull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectDetailed(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Quad)
			assert.Equal(t, tt.method, sel.Method)
		})
	}
}

func TestSelect_ExtremaFallback(t *testing.T) {
	// Hull is a triangle, so the interior point is pulled in by the extrema rule.
	sel, err := SelectDetailed(pts(0, 0, 100, 0, 0, 100, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, MethodExtrema, sel.Method)
	assert.Equal(t, geometry.Pt(0, 0), sel.Quad[0])
	assert.ElementsMatch(t, pts(0, 0, 100, 0, 0, 100, 10, 10), sel.Quad.Points())
}

func TestSelect_CollinearPassesThrough(t *testing.T) {
	q, err := Select(pts(0, 0, 10, 0, 20, 0, 30, 0))
	require.NoError(t, err)
	assert.ElementsMatch(t, pts(0, 0, 10, 0, 20, 0, 30, 0), q.Points())
	assert.Equal(t, geometry.Pt(0, 0), q[0])
}

func TestSelect_AntiDiagonalPadsToFour(t *testing.T) {
	// All points share x+y, so both sum extrema hit the same point.
	q, err := Select(pts(0, 10, 5, 5, 10, 0, 3, 7))
	require.NoError(t, err)
	assert.ElementsMatch(t, pts(0, 10, 5, 5, 10, 0, 3, 7), q.Points())
}

func TestSelect_InsufficientPoints(t *testing.T) {
	tests := []struct {
		name     string
		input    []geometry.Point
		distinct int
	}{
		{"empty", nil, 0},
		{"three points", pts(0, 0, 1, 0, 0, 1), 3},
		{"duplicates collapse", pts(0, 0, 1, 0, 0, 1, 1, 0), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.input)
			require.Error(t, err)
			var ip *geomerr.InsufficientPointsError
			require.True(t, errors.As(err, &ip))
			assert.Equal(t, tt.distinct, ip.Distinct)
		})
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	in := pts(100, 100, 0, 100, 100, 0, 0, 0)
	orig := append([]geometry.Point(nil), in...)
	_, err := Select(in)
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestOrder(t *testing.T) {
	got := Order(pts(0, 100, 100, 100, 0, 0, 100, 0))
	assert.Equal(t, Quad{{0, 0}, {100, 0}, {100, 100}, {0, 100}}, got)
	assert.True(t, IsClockwise(got))
}

func TestOrder_DiamondTieBreak(t *testing.T) {
	// (50,0) and (0,50) tie on x+y; the upper one wins.
	got := Order(pts(0, 50, 50, 100, 100, 50, 50, 0))
	assert.Equal(t, Quad{{50, 0}, {100, 50}, {50, 100}, {0, 50}}, got)
}

func TestIsClockwise(t *testing.T) {
	assert.True(t, IsClockwise(Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
	assert.False(t, IsClockwise(Quad{{0, 0}, {0, 10}, {10, 10}, {10, 0}}))
}

func TestQuad_JSON(t *testing.T) {
	q := Quad{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,0],[100,0],[100,100],[0,100]]`, string(data))

	var back Quad
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
	assert.Error(t, json.Unmarshal([]byte(`[[0,0],[1,1]]`), &back))
}
