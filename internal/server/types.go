package server

import (
	"fmt"
	"image/color"
	"math"
	"net/http"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	corsOrigin       string
	maxBodyBytes     int64
	timeout          time.Duration
	imagesEnabled    bool
	overlayColor     color.Color
	overlayThickness int
	rectifiedFormat  string
	jpegQuality      int
	maxRectPixels    int
	solver           camera.Options
	rateLimiter      *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host             string
	Port             int
	CORSOrigin       string
	MaxBodyKB        int64
	TimeoutSec       int
	ImagesEnabled    bool
	OverlayColor     string
	OverlayThickness int
	RectifiedFormat  string
	JPEGQuality      int
	MaxRectPixels    int
	Solver           camera.Options
	RateLimit        RateLimitSettings
}

// RateLimitSettings configures per-client request limiting.
type RateLimitSettings struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ImageSizeJSON is the image_size object of a request.
type ImageSizeJSON struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EstimateRequest is the body of both estimate endpoints and of WebSocket
// messages.
type EstimateRequest struct {
	Type         string           `json:"type,omitempty"`
	ImageSize    ImageSizeJSON    `json:"image_size"`
	PointsImg    []geometry.Point `json:"points_img"`
	IncludeImage bool             `json:"include_image,omitempty"`
	ImageB64     string           `json:"image_b64,omitempty"`
}

// Validate checks that every point is an integer pixel coordinate. Numbers
// such as 100.0 are accepted.
func (r EstimateRequest) Validate() error {
	for i, p := range r.PointsImg {
		if p.X != math.Trunc(p.X) || p.Y != math.Trunc(p.Y) {
			return geomerr.Validation("points_img",
				fmt.Errorf("point %d (%g, %g) is not an integer pixel coordinate", i, p.X, p.Y))
		}
	}
	return nil
}

// ToRequest converts the wire request to the pipeline input.
func (r EstimateRequest) ToRequest() estimate.Request {
	return estimate.Request{
		ImageWidth:  r.ImageSize.Width,
		ImageHeight: r.ImageSize.Height,
		Points:      r.PointsImg,
	}
}

// HomographyResponse is returned by POST /estimate-homography.
type HomographyResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	estimate.Rectification
	RectifiedImage string `json:"rectified_image,omitempty"`
	OverlayImage   string `json:"overlay_image,omitempty"`
	Note           string `json:"note,omitempty"`
}

// PoseResponse is returned by POST /estimate-pose.
type PoseResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	estimate.PoseResult
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Field     string `json:"field,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// NewServer creates a new server instance.
func NewServer(config Config) (*Server, error) {
	col := raster.DefaultOverlayColor
	if config.OverlayColor != "" {
		c, err := raster.ParseHexColor(config.OverlayColor)
		if err != nil {
			return nil, err
		}
		col = c
	}
	thickness := config.OverlayThickness
	if thickness <= 0 {
		thickness = 3
	}
	format := config.RectifiedFormat
	if format == "" {
		format = raster.FormatPNG
	}
	quality := config.JPEGQuality
	if quality <= 0 {
		quality = 90
	}
	maxPixels := config.MaxRectPixels
	if maxPixels <= 0 {
		maxPixels = raster.DefaultMaxPixels
	}
	solver := config.Solver
	if solver.FallbackScale <= 0 {
		solver = camera.DefaultOptions()
	}
	maxBody := config.MaxBodyKB * 1024
	if maxBody <= 0 {
		maxBody = 20 << 20
	}
	timeout := time.Duration(config.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		corsOrigin:       config.CORSOrigin,
		maxBodyBytes:     maxBody,
		timeout:          timeout,
		imagesEnabled:    config.ImagesEnabled,
		overlayColor:     col,
		overlayThickness: thickness,
		rectifiedFormat:  format,
		jpegQuality:      quality,
		maxRectPixels:    maxPixels,
		solver:           solver,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/estimate-homography", s.corsMiddleware(s.rateLimitMiddleware(s.withTimeout(s.homographyHandler))))
	mux.HandleFunc("/estimate-pose", s.corsMiddleware(s.rateLimitMiddleware(s.withTimeout(s.poseHandler))))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.webSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
