// Package batch runs many pose or rectification jobs from a job file with a
// bounded worker pool.
package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Operations a job can request.
const (
	OpPose       = "pose"
	OpHomography = "homography"
)

// Job is one entry of a job file.
type Job struct {
	ID        string             `json:"id,omitempty" yaml:"id,omitempty"`
	Operation string             `json:"operation" yaml:"operation"`
	ImageSize estimate.ImageSize `json:"image_size" yaml:"image_size"`
	Points    []geometry.Point   `json:"points_img" yaml:"points_img"`
	// Optional image paths, relative to the job file.
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
	Rectified string `json:"rectified,omitempty" yaml:"rectified,omitempty"`
	Overlay   string `json:"overlay,omitempty" yaml:"overlay,omitempty"`
}

// Request converts the job to a pipeline request.
func (j Job) Request() estimate.Request {
	return estimate.Request{
		ImageWidth:  j.ImageSize.Width,
		ImageHeight: j.ImageSize.Height,
		Points:      j.Points,
	}
}

type jobFile struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// LoadJobs reads a .json, .jsonl or .yaml job file. JSON and YAML files hold
// either a list of jobs or an object with a "jobs" list.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: job file path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var jobs []Job
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		jobs, err = parseJSONLines(data)
	case ".json":
		jobs, err = parseJSON(data)
	case ".yaml", ".yml":
		jobs, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported job file extension %q (want .json, .jsonl or .yaml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs found in %s", path)
	}
	if err := normalize(jobs, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return jobs, nil
}

func parseJSON(data []byte) ([]Job, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var jobs []Job
		err := json.Unmarshal(trimmed, &jobs)
		return jobs, err
	}
	var f jobFile
	err := json.Unmarshal(trimmed, &f)
	return f.Jobs, err
}

func parseJSONLines(data []byte) ([]Job, error) {
	var jobs []Job
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var j Job
		if err := json.Unmarshal([]byte(text), &j); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, sc.Err()
}

func parseYAML(data []byte) ([]Job, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var jobs []Job
		err := node.Content[0].Decode(&jobs)
		return jobs, err
	}
	var f jobFile
	err := node.Content[0].Decode(&f)
	return f.Jobs, err
}

func normalize(jobs []Job, baseDir string) error {
	for i := range jobs {
		j := &jobs[i]
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		switch strings.ToLower(j.Operation) {
		case "", OpPose:
			j.Operation = OpPose
		case OpHomography, "rectify", "rectification":
			j.Operation = OpHomography
		default:
			return fmt.Errorf("job %d (%s): unknown operation %q", i, j.ID, j.Operation)
		}
		j.Image = resolve(baseDir, j.Image)
		j.Rectified = resolve(baseDir, j.Rectified)
		j.Overlay = resolve(baseDir, j.Overlay)
	}
	return nil
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
