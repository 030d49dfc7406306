package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/disintegration/imaging"
)

// DefaultOverlayColor is the outline colour used when none is configured.
var DefaultOverlayColor = color.NRGBA{255, 255, 0, 255}

// DrawOverlay returns a copy of src with the closed polygon pts outlined.
func DrawOverlay(src image.Image, pts []geometry.Point, col color.Color, thickness int) *image.NRGBA {
	dst := imaging.Clone(src)
	if col == nil {
		col = DefaultOverlayColor
	}
	DrawPolygon(dst, pts, col, thickness)
	return dst
}

// DrawPolygon draws connected line segments and closes the polygon.
// Segments are clipped to dst, so corners far outside the image cost no more
// than the visible part of each edge.
func DrawPolygon(dst draw.Image, pts []geometry.Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	r := float64(max(thickness-1, 0) / 2)
	b := dst.Bounds()
	minX, minY := float64(b.Min.X)-r, float64(b.Min.Y)-r
	maxX, maxY := float64(b.Max.X-1)+r, float64(b.Max.Y-1)+r
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		p, q, ok := clipSegment(p, q, minX, minY, maxX, maxY)
		if !ok {
			continue
		}
		drawLine(dst, roundPoint(p), roundPoint(q), col, thickness)
	}
}

func roundPoint(p geometry.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// clipSegment clips p-q to the box with Liang-Barsky. ok is false when the
// segment misses the box.
func clipSegment(p, q geometry.Point, minX, minY, maxX, maxY float64) (geometry.Point, geometry.Point, bool) {
	if !p.IsFinite() || !q.IsFinite() {
		return p, q, false
	}
	dx, dy := q.X-p.X, q.Y-p.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, p.X - minX},
		{dx, maxX - p.X},
		{-dy, p.Y - minY},
		{dy, maxY - p.Y},
	}
	for _, e := range edges {
		pe, qe := e[0], e[1]
		if pe == 0 {
			if qe < 0 {
				return p, q, false
			}
			continue
		}
		t := qe / pe
		if pe < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return p, q, false
		}
	}
	return geometry.Pt(p.X+t0*dx, p.Y+t0*dy), geometry.Pt(p.X+t1*dx, p.Y+t1*dy), true
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst draw.Image, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	bounds := dst.Bounds()
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(bounds) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.NRGBA, error) {
	orig := s
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", orig)
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", orig, err)
	}
	return color.NRGBA{uint8(rv), uint8(gv), uint8(bv), 255}, nil //nolint:gosec // G115: values are 0..255
}
