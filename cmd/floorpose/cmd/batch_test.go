package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/floorpose/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchJobsYAML = `jobs:
  - id: square-pose
    operation: pose
    image_size: {width: 200, height: 200}
    points_img: [{x: 0, y: 0}, {x: 100, y: 0}, {x: 100, y: 100}, {x: 0, y: 100}]
  - id: square-rect
    operation: homography
    image_size: {width: 200, height: 200}
    points_img: [{x: 0, y: 0}, {x: 100, y: 0}, {x: 100, y: 100}, {x: 0, y: 100}]
    image: src.png
    rectified: out/rect.png
`

const batchFailingJSONL = `{"id":"good","operation":"pose","image_size":{"width":200,"height":200},"points_img":[{"x":0,"y":0},{"x":100,"y":0},{"x":100,"y":100},{"x":0,"y":100}]}
{"id":"bad","operation":"pose","image_size":{"width":100,"height":100},"points_img":[{"x":0,"y":0},{"x":10,"y":10},{"x":20,"y":20},{"x":30,"y":30}]}
`

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteImage(t, dir, "src.png", testutil.CheckerImage(200, 200, 10))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "out"), 0o750))
	jobsPath := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobsPath, []byte(batchJobsYAML), 0o600))

	output, err := executeCommand(t, "batch", jobsPath, "--workers", "2", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Jobs []struct {
			ID      string   `json:"id"`
			Status  string   `json:"status"`
			Outputs []string `json:"outputs"`
		} `json:"jobs"`
		Succeeded int `json:"succeeded"`
		Workers   int `json:"workers"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "square-pose", got.Jobs[0].ID)
	assert.Equal(t, "square-rect", got.Jobs[1].ID)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, 2, got.Workers)
	assert.FileExists(t, filepath.Join(dir, "out", "rect.png"))
}

func TestBatchCommandFailures(t *testing.T) {
	dir := t.TempDir()
	jobsPath := filepath.Join(dir, "jobs.jsonl")
	require.NoError(t, os.WriteFile(jobsPath, []byte(batchFailingJSONL), 0o600))

	output, err := executeCommand(t, "batch", jobsPath, "--continue-on-error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 jobs failed")
	assert.Contains(t, output, "good [pose] ok")
	assert.Contains(t, output, "bad [pose] error (computation)")
	assert.Contains(t, output, "1 succeeded, 1 failed, 0 skipped")

	_, err = executeCommand(t, "batch", jobsPath, "--workers", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job bad failed")
}

func TestBatchCommandArgs(t *testing.T) {
	_, err := executeCommand(t, "batch")
	require.Error(t, err)

	_, err = executeCommand(t, "batch", filepath.Join(t.TempDir(), "jobs.txt"))
	require.Error(t, err)

	dir := t.TempDir()
	jobsPath := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobsPath, []byte(batchJobsYAML), 0o600))
	_, err = executeCommand(t, "batch", jobsPath, "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be at least 1")
}
