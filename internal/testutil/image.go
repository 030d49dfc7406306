package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/stretchr/testify/require"
)

// CheckerImage returns a black and white checkerboard with square cells.
func CheckerImage(width, height, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			c := color.RGBA{20, 20, 20, 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.RGBA{235, 235, 235, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// WriteImage saves img under dir and returns its path.
func WriteImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, raster.Save(img, path, 90))
	return path
}
