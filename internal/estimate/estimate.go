// Package estimate exposes the two pipeline operations, rectification and
// pose, over a validated request.
package estimate

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/corners"
	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/homography"
)

// Request is the input shared by both operations.
type Request struct {
	ImageWidth  int
	ImageHeight int
	Points      []geometry.Point
}

// Rectification is the result of ComputeRectification.
type Rectification struct {
	Quad     corners.Quad      `json:"ordered_points" yaml:"ordered_points"`
	Method   corners.Method    `json:"corner_method" yaml:"corner_method"`
	RectSize homography.Size   `json:"rect_size" yaml:"rect_size"`
	Forward  homography.Matrix `json:"H_plane2img" yaml:"H_plane2img"`
	Inverse  homography.Matrix `json:"H_img2plane" yaml:"H_img2plane"`
}

// PoseResult is the result of ComputePose.
type PoseResult struct {
	ImageSize    ImageSize         `json:"image_size" yaml:"image_size"`
	Quad         corners.Quad      `json:"ordered_points" yaml:"ordered_points"`
	RectSize     homography.Size   `json:"rect_size" yaml:"rect_size"`
	Forward      homography.Matrix `json:"H_plane2img" yaml:"H_plane2img"`
	K            camera.Mat3       `json:"K" yaml:"K"`
	Fx           float64           `json:"fx" yaml:"fx"`
	Fy           float64           `json:"fy" yaml:"fy"`
	Cx           float64           `json:"cx" yaml:"cx"`
	Cy           float64           `json:"cy" yaml:"cy"`
	R            camera.Mat3       `json:"R" yaml:"R"`
	T            camera.Vec3       `json:"t" yaml:"t"`
	CameraCenter camera.Vec3       `json:"camera_center_cv" yaml:"camera_center_cv"`
	RenderPose   camera.RenderPose `json:"three_pose" yaml:"three_pose"`
	Fallback     camera.Fallback   `json:"focal_fallback" yaml:"focal_fallback"`
}

// ImageSize is the pixel size of the source image.
type ImageSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Validate rejects requests that cannot enter the pipeline.
func Validate(req Request) error {
	if req.ImageWidth <= 0 || req.ImageHeight <= 0 {
		return geomerr.Validation("image_size",
			fmt.Errorf("width and height must be positive, got %dx%d", req.ImageWidth, req.ImageHeight))
	}
	if len(req.Points) < 4 {
		return geomerr.Validation("points_img", fmt.Errorf("%w, got %d", geomerr.ErrTooFewPoints, len(req.Points)))
	}
	for i, p := range req.Points {
		if !p.IsFinite() {
			return geomerr.Validation("points_img", fmt.Errorf("point %d is not finite", i))
		}
	}
	return nil
}

// ComputeRectification orders the corners and derives the rectangle and
// both homographies.
func ComputeRectification(req Request) (*Rectification, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	sel, res, err := rectify(req.Points)
	if err != nil {
		return nil, err
	}
	return &Rectification{
		Quad:     sel.Quad,
		Method:   sel.Method,
		RectSize: res.Size,
		Forward:  res.Forward,
		Inverse:  res.Inverse,
	}, nil
}

// ComputePose runs rectification and decomposes the forward homography into
// a camera pose.
func ComputePose(req Request) (*PoseResult, error) {
	return ComputePoseWithOptions(req, camera.DefaultOptions())
}

// ComputePoseWithOptions is ComputePose with explicit solver options.
func ComputePoseWithOptions(req Request, opts camera.Options) (*PoseResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	sel, res, err := rectify(req.Points)
	if err != nil {
		return nil, err
	}
	pose, err := camera.SolveWithOptions(res.Forward, req.ImageWidth, req.ImageHeight, opts)
	if err != nil {
		return nil, err
	}
	in := pose.Intrinsics
	return &PoseResult{
		ImageSize:    ImageSize{Width: req.ImageWidth, Height: req.ImageHeight},
		Quad:         sel.Quad,
		RectSize:     res.Size,
		Forward:      res.Forward,
		K:            in.Matrix(),
		Fx:           in.F,
		Fy:           in.F,
		Cx:           in.Cx,
		Cy:           in.Cy,
		R:            pose.R,
		T:            pose.T,
		CameraCenter: pose.Center,
		RenderPose:   pose.Render,
		Fallback:     pose.Fallback,
	}, nil
}

func rectify(points []geometry.Point) (corners.Selection, *homography.Result, error) {
	sel, err := corners.SelectDetailed(points)
	if err != nil {
		var ip *geomerr.InsufficientPointsError
		if errors.As(err, &ip) {
			return corners.Selection{}, nil, geomerr.Computation("corners", err)
		}
		return corners.Selection{}, nil, err
	}
	res, err := homography.Estimate(sel.Quad)
	if err != nil {
		return corners.Selection{}, nil, err
	}
	return sel, res, nil
}
