package testutil

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/geometry"
)

// Scene is an image size plus the points a user marked on it.
type Scene struct {
	Name   string
	Width  int
	Height int
	Points []geometry.Point
}

// SquareScene is a 100px axis-aligned square in a 200x200 image.
func SquareScene() Scene {
	return Scene{
		Name: "square", Width: 200, Height: 200,
		Points: []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
	}
}

// CollinearScene has four points on one line.
func CollinearScene() Scene {
	return Scene{
		Name: "collinear", Width: 100, Height: 100,
		Points: []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}},
	}
}

// FloorScene is a floor rectangle seen by a tilted camera, with extra
// clicks on its edges.
func FloorScene() Scene {
	return Scene{
		Name: "floor", Width: 1280, Height: 720,
		Points: []geometry.Point{
			{X: 412, Y: 318}, {X: 905, Y: 301}, {X: 1130, Y: 640}, {X: 170, Y: 668},
			{X: 650, Y: 310}, {X: 640, Y: 655},
		},
	}
}

// PointsArg formats the points as the CLI expects: "x,y x,y ...".
func (s Scene) PointsArg() string {
	parts := make([]string, len(s.Points))
	for i, p := range s.Points {
		parts[i] = fmt.Sprintf("%g,%g", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

// SizeArg formats the image size as "WxH".
func (s Scene) SizeArg() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
