package batch

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/corners"
	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/homography"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"golang.org/x/sync/errgroup"
)

// Job statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Config holds all configuration for batch processing.
type Config struct {
	Workers         int
	ContinueOnError bool
	Solver          camera.Options

	OverlayColor     color.Color
	OverlayThickness int
	JPEGQuality      int
	MaxRectPixels    int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		Solver:           camera.DefaultOptions(),
		OverlayColor:     raster.DefaultOverlayColor,
		OverlayThickness: 3,
		JPEGQuality:      90,
		MaxRectPixels:    raster.DefaultMaxPixels,
	}
}

// JobResult is the outcome of one job.
type JobResult struct {
	ID            string                  `json:"id" yaml:"id"`
	Operation     string                  `json:"operation" yaml:"operation"`
	Status        string                  `json:"status" yaml:"status"`
	Error         string                  `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType     string                  `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Rectification *estimate.Rectification `json:"rectification,omitempty" yaml:"rectification,omitempty"`
	Pose          *estimate.PoseResult    `json:"pose,omitempty" yaml:"pose,omitempty"`
	Outputs       []string                `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	DurationMs    float64                 `json:"duration_ms" yaml:"duration_ms"`
}

// Result holds the ordered results of a batch run.
type Result struct {
	Jobs      []JobResult   `json:"jobs" yaml:"jobs"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed" yaml:"failed"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Workers   int           `json:"workers" yaml:"workers"`
	Duration  time.Duration `json:"-" yaml:"-"`
}

// JobError reports the first failed job when ContinueOnError is off.
type JobError struct {
	ID  string
	Err error
}

func (e *JobError) Error() string { return fmt.Sprintf("job %s failed: %v", e.ID, e.Err) }

func (e *JobError) Unwrap() error { return e.Err }

// Run processes jobs with at most cfg.Workers running at once. Results keep
// the job order. Without ContinueOnError the first failure cancels the
// remaining jobs and is returned along with the partial result.
func Run(ctx context.Context, jobs []Job, cfg Config) (*Result, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if cfg.Solver.FallbackScale <= 0 {
		cfg.Solver = camera.DefaultOptions()
	}

	results := make([]JobResult, len(jobs))
	for i, j := range jobs {
		results[i] = JobResult{ID: j.ID, Operation: j.Operation, Status: StatusSkipped}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = runJob(jobs[i], cfg)
			if results[i].Status == StatusError {
				slog.Warn("Batch job failed", "id", jobs[i].ID, "error", results[i].Error)
				if !cfg.ContinueOnError {
					return &JobError{ID: jobs[i].ID, Err: errors.New(results[i].Error)}
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := &Result{Jobs: results, Workers: workers, Duration: time.Since(start)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			res.Succeeded++
		case StatusError:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	slog.Info("Batch finished",
		"jobs", len(jobs), "succeeded", res.Succeeded, "failed", res.Failed,
		"skipped", res.Skipped, "duration", res.Duration)
	return res, err
}

func runJob(job Job, cfg Config) (out JobResult) {
	start := time.Now()
	out = JobResult{ID: job.ID, Operation: job.Operation, Status: StatusOK}
	defer func() { out.DurationMs = float64(time.Since(start).Microseconds()) / 1000 }()

	var (
		quad    corners.Quad
		size    homography.Size
		forward homography.Matrix
	)
	switch job.Operation {
	case OpHomography:
		rect, err := estimate.ComputeRectification(job.Request())
		if err != nil {
			return failed(out, err)
		}
		out.Rectification = rect
		quad, size, forward = rect.Quad, rect.RectSize, rect.Forward
	default:
		pose, err := estimate.ComputePoseWithOptions(job.Request(), cfg.Solver)
		if err != nil {
			return failed(out, err)
		}
		if pose.Fallback.Applied {
			slog.Warn("Focal length fallback applied", "id", job.ID, "reason", pose.Fallback.Reason)
		}
		out.Pose = pose
		quad, size, forward = pose.Quad, pose.RectSize, pose.Forward
	}

	if job.Image != "" && (job.Rectified != "" || job.Overlay != "") {
		outputs, err := writeImages(job, cfg, quad, size, forward)
		out.Outputs = outputs
		if err != nil {
			return failed(out, err)
		}
	}
	return out
}

func writeImages(job Job, cfg Config, quad corners.Quad, size homography.Size, forward homography.Matrix) ([]string, error) {
	if job.Rectified != "" {
		if err := raster.CheckSize(size, cfg.MaxRectPixels); err != nil {
			return nil, err
		}
	}
	img, err := raster.Load(job.Image)
	if err != nil {
		return nil, err
	}
	var outputs []string
	if job.Rectified != "" {
		warped, err := raster.Warp(img, forward, size, cfg.MaxRectPixels)
		if err != nil {
			return outputs, err
		}
		if err := raster.Save(warped, job.Rectified, cfg.JPEGQuality); err != nil {
			return outputs, err
		}
		outputs = append(outputs, job.Rectified)
	}
	if job.Overlay != "" {
		ov := raster.DrawOverlay(img, quad.Points(), cfg.OverlayColor, cfg.OverlayThickness)
		if err := raster.Save(ov, job.Overlay, cfg.JPEGQuality); err != nil {
			return outputs, err
		}
		outputs = append(outputs, job.Overlay)
	}
	return outputs, nil
}

func failed(out JobResult, err error) JobResult {
	out.Status = StatusError
	out.Error = err.Error()
	switch {
	case geomerr.IsValidation(err):
		out.ErrorType = "validation"
	case geomerr.IsComputation(err):
		out.ErrorType = "computation"
	default:
		var ipe *raster.ImageProcessingError
		if errors.As(err, &ipe) {
			out.ErrorType = "image"
		} else {
			out.ErrorType = "internal"
		}
	}
	return out
}
