package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerimeter(t *testing.T) {
	assert.InDelta(t, 40.0, Perimeter([]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}), 1e-12)
	assert.Zero(t, Perimeter([]Point{{1, 1}}))
}

func TestSimplifyPolygon_DropsNearLinePoints(t *testing.T) {
	line := []Point{{0, 0}, {1, 0.01}, {2, -0.01}, {3, 0}}
	assert.Equal(t, []Point{{0, 0}, {3, 0}}, SimplifyPolygon(line, 0.1))
}

func TestSimplifyClosed_OctagonToSquare(t *testing.T) {
	// Square corners plus slightly bulged edge midpoints.
	ring := []Point{{0, 0}, {50, -1}, {100, 0}, {101, 50}, {100, 100}, {50, 101}, {0, 100}, {-1, 50}}
	got := SimplifyClosed(ring, 4)
	assert.ElementsMatch(t, []Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}, got)
}

func TestSimplifyClosed_SmallToleranceKeepsAll(t *testing.T) {
	ring := []Point{{0, 0}, {50, -10}, {100, 0}, {100, 100}, {0, 100}}
	assert.Len(t, SimplifyClosed(ring, 0.5), 5)
}

func TestPerpendicularDistance(t *testing.T) {
	assert.InDelta(t, 5.0, perpendicularDistance(Pt(5, 5), Pt(0, 0), Pt(10, 0)), 1e-12)
	assert.InDelta(t, math.Sqrt2, perpendicularDistance(Pt(1, 1), Pt(0, 0), Pt(0, 0)), 1e-12)
}
