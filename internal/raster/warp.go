package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/homography"
)

// DefaultMaxPixels caps the rectified image at 4096x4096 pixels.
const DefaultMaxPixels = 4096 * 4096

// ErrTooLarge is returned when a rectified image would exceed the pixel budget.
var ErrTooLarge = errors.New("rectified image exceeds pixel budget")

// CheckSize reports whether size fits in maxPixels. A non-positive maxPixels
// means DefaultMaxPixels.
func CheckSize(size homography.Size, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if size.Width <= 0 || size.Height <= 0 ||
		size.Width > maxPixels || size.Height > maxPixels/size.Width {
		return &ImageProcessingError{
			Operation: "warp",
			Err:       fmt.Errorf("%dx%d exceeds %d pixels: %w", size.Width, size.Height, maxPixels, ErrTooLarge),
		}
	}
	return nil
}

// Warp renders the rectified view of src. forward maps rectangle
// coordinates to source pixels; each output pixel is sampled bilinearly from
// src. Samples outside src are black. Sizes over maxPixels fail before any
// allocation.
func Warp(src image.Image, forward homography.Matrix, size homography.Size, maxPixels int) (*image.RGBA, error) {
	if err := CheckSize(size, maxPixels); err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	sb := src.Bounds()
	for y := range size.Height {
		for x := range size.Width {
			p, ok := forward.Apply(geometry.Pt(float64(x), float64(y)))
			if !ok {
				out.Set(x, y, color.RGBA{0, 0, 0, 255})
				continue
			}
			out.Set(x, y, bilinearSample(src, p.X+float64(sb.Min.X), p.Y+float64(sb.Min.Y)))
		}
	}
	return out, nil
}

func bilinearSample(src image.Image, x, y float64) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.RGBA{0, 0, 0, 255}
	}
	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, b.Max.X-1)
	y1 := min(y0+1, b.Max.Y-1)
	fx := x - float64(x0)
	fy := y - float64(y0)
	c00 := toRGBA(src.At(x0, y0))
	c10 := toRGBA(src.At(x1, y0))
	c01 := toRGBA(src.At(x0, y1))
	c11 := toRGBA(src.At(x1, y1))
	r := lerp(lerp(c00.R, c10.R, fx), lerp(c01.R, c11.R, fx), fy)
	g := lerp(lerp(c00.G, c10.G, fx), lerp(c01.G, c11.G, fx), fy)
	bl := lerp(lerp(c00.B, c10.B, fx), lerp(c01.B, c11.B, fx), fy)
	a := lerp(lerp(c00.A, c10.A, fx), lerp(c01.A, c11.A, fx), fy)
	return color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), uint8(a + 0.5)}
}

type rgba struct{ R, G, B, A float64 }

func toRGBA(c color.Color) rgba {
	r, g, b, a := c.RGBA()
	return rgba{R: float64(r >> 8), G: float64(g >> 8), B: float64(b >> 8), A: float64(a >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
