package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvexHull(t *testing.T) {
	tests := []struct {
		name     string
		input    []Point
		expected []Point
	}{
		{
			name:     "empty",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single point",
			input:    []Point{{1, 1}},
			expected: []Point{{1, 1}},
		},
		{
			name:     "square with interior point",
			input:    []Point{{0, 0}, {10, 0}, {5, 5}, {10, 10}, {0, 10}},
			expected: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
		},
		{
			name:     "duplicates removed",
			input:    []Point{{0, 0}, {0, 0}, {4, 0}, {4, 4}, {4, 4}, {0, 4}},
			expected: []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}},
		},
		{
			name:     "collinear edge points dropped",
			input:    []Point{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}},
			expected: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
		},
		{
			name:     "all collinear",
			input:    []Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
			expected: []Point{{0, 0}, {3, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvexHull(tt.input)
			if len(tt.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConvexHull_DoesNotMutateInput(t *testing.T) {
	in := []Point{{3, 3}, {0, 0}, {3, 0}, {0, 3}, {1, 1}}
	orig := append([]Point(nil), in...)
	_ = ConvexHull(in)
	assert.Equal(t, orig, in)
}

func TestSortUnique(t *testing.T) {
	got := SortUnique([]Point{{2, 1}, {1, 5}, {2, 1}, {1, 2}})
	require.Len(t, got, 3)
	assert.Equal(t, []Point{{1, 2}, {1, 5}, {2, 1}}, got)
}

func TestCentroid(t *testing.T) {
	assert.Equal(t, Point{}, Centroid(nil))
	assert.Equal(t, Point{X: 5, Y: 5}, Centroid([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
}

func TestCollinear(t *testing.T) {
	assert.True(t, Collinear(Pt(0, 0), Pt(50, 50), Pt(100, 100), 1e-9))
	assert.True(t, Collinear(Pt(1, 1), Pt(1, 1), Pt(1, 1), 1e-9))
	assert.False(t, Collinear(Pt(0, 0), Pt(100, 0), Pt(0, 100), 1e-9))
}
