package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func squareJob(id, op string) Job {
	return Job{
		ID:        id,
		Operation: op,
		ImageSize: estimate.ImageSize{Width: 200, Height: 200},
		Points:    []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
	}
}

func collinearJob(id string) Job {
	j := squareJob(id, OpPose)
	j.Points = []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	return j
}

func TestRun_OrderedResults(t *testing.T) {
	var jobs []Job
	for i := range 20 {
		op := OpPose
		if i%2 == 1 {
			op = OpHomography
		}
		jobs = append(jobs, squareJob(string(rune('a'+i)), op))
	}
	cfg := DefaultConfig()
	cfg.Workers = 3

	res, err := Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 20)
	assert.Equal(t, 20, res.Succeeded)
	assert.Equal(t, 3, res.Workers)
	for i, r := range res.Jobs {
		assert.Equal(t, jobs[i].ID, r.ID)
		assert.Equal(t, StatusOK, r.Status)
		if jobs[i].Operation == OpPose {
			require.NotNil(t, r.Pose)
			assert.Nil(t, r.Rectification)
			assert.True(t, r.Pose.Fallback.Applied)
		} else {
			require.NotNil(t, r.Rectification)
			assert.Equal(t, 100, r.Rectification.RectSize.Width)
		}
	}
}

func TestRun_ContinueOnError(t *testing.T) {
	jobs := []Job{squareJob("a", OpPose), collinearJob("bad"), squareJob("c", OpHomography)}
	cfg := DefaultConfig()
	cfg.ContinueOnError = true

	res, err := Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, StatusError, res.Jobs[1].Status)
	assert.Equal(t, "computation", res.Jobs[1].ErrorType)
	assert.Contains(t, res.Jobs[1].Error, "homography")
}

func TestRun_StopsOnFirstError(t *testing.T) {
	jobs := []Job{collinearJob("bad")}
	for i := range 10 {
		jobs = append(jobs, squareJob(string(rune('a'+i)), OpPose))
	}
	cfg := DefaultConfig()
	cfg.Workers = 1

	res, err := Run(context.Background(), jobs, cfg)
	require.Error(t, err)
	var je *JobError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, "bad", je.ID)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, len(jobs), res.Succeeded+res.Failed+res.Skipped)
	assert.Positive(t, res.Skipped)
}

func TestRun_ValidationError(t *testing.T) {
	j := squareJob("v", OpPose)
	j.ImageSize = estimate.ImageSize{}
	cfg := DefaultConfig()
	cfg.ContinueOnError = true
	res, err := Run(context.Background(), []Job{j}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "validation", res.Jobs[0].ErrorType)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, []Job{squareJob("a", OpPose), squareJob("b", OpPose)}, DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Skipped)
}

func TestRun_WritesImages(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := range 200 {
		for x := range 200 {
			src.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	in := filepath.Join(dir, "in.png")
	require.NoError(t, raster.Save(src, in, 90))

	j := squareJob("img", OpHomography)
	j.Image = in
	j.Rectified = filepath.Join(dir, "rect.png")
	j.Overlay = filepath.Join(dir, "overlay.jpg")

	res, err := Run(context.Background(), []Job{j}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{j.Rectified, j.Overlay}, res.Jobs[0].Outputs)

	rect, err := raster.Load(j.Rectified)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), rect.Bounds())
	ov, err := raster.Load(j.Overlay)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), ov.Bounds())
}

func TestRun_MissingImage(t *testing.T) {
	j := squareJob("img", OpPose)
	j.Image = filepath.Join(t.TempDir(), "missing.png")
	j.Overlay = filepath.Join(t.TempDir(), "ov.png")
	cfg := DefaultConfig()
	cfg.ContinueOnError = true

	res, err := Run(context.Background(), []Job{j}, cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Jobs[0].Status)
	assert.Equal(t, "image", res.Jobs[0].ErrorType)
}

func TestRun_RectifiedOverBudget(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	require.NoError(t, raster.Save(image.NewRGBA(image.Rect(0, 0, 200, 200)), in, 90))

	j := squareJob("big", OpHomography)
	j.Image = in
	j.Rectified = filepath.Join(dir, "rect.png")
	cfg := DefaultConfig()
	cfg.ContinueOnError = true
	cfg.MaxRectPixels = 64 * 64

	res, err := Run(context.Background(), []Job{j}, cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Jobs[0].Status)
	assert.Equal(t, "image", res.Jobs[0].ErrorType)
	assert.Contains(t, res.Jobs[0].Error, "exceeds")
	assert.Empty(t, res.Jobs[0].Outputs)
	assert.NoFileExists(t, j.Rectified)
}

func TestFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContinueOnError = true
	res, err := Run(context.Background(),
		[]Job{squareJob("p", OpPose), squareJob("h", OpHomography), collinearJob("x")}, cfg)
	require.NoError(t, err)

	text, err := Format(res, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "p [pose] ok f=240.00 rect=100x100")
	assert.Contains(t, text, "fallback=vanishing_point_at_infinity")
	assert.Contains(t, text, "h [homography] ok rect=100x100 method=hull")
	assert.Contains(t, text, "x [pose] error (computation)")
	assert.Contains(t, text, "2 succeeded, 1 failed, 0 skipped")

	js, err := Format(res, "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(js, "{"))
	assert.Contains(t, js, `"three_pose"`)

	ys, err := Format(res, "yaml")
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(ys), &back))
	assert.Equal(t, 2, back["succeeded"])

	_, err = Format(res, "csv")
	require.Error(t, err)
}
