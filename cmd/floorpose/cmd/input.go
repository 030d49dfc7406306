package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geometry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// requestFile is the on-disk form of a single request, matching the HTTP body.
type requestFile struct {
	ImageSize estimate.ImageSize `json:"image_size" yaml:"image_size"`
	Points    []geometry.Point   `json:"points_img" yaml:"points_img"`
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("size", "", "image size as WIDTHxHEIGHT, e.g. 1280x720")
	cmd.Flags().String("points", "", `marked points as "x,y x,y ..." (space or ; separated)`)
	cmd.Flags().String("request", "", "read size and points from a JSON or YAML request file (- for stdin)")
	cmd.Flags().StringP("format", "f", "", "output format: text, json, yaml (default from config)")
	cmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}

// readRequest builds the pipeline request from either --request or the
// --size/--points pair.
func readRequest(cmd *cobra.Command) (estimate.Request, error) {
	reqPath, _ := cmd.Flags().GetString("request")
	sizeArg, _ := cmd.Flags().GetString("size")
	pointsArg, _ := cmd.Flags().GetString("points")

	if reqPath != "" {
		if sizeArg != "" || pointsArg != "" {
			return estimate.Request{}, errors.New("--request cannot be combined with --size or --points")
		}
		return loadRequestFile(reqPath, cmd.InOrStdin())
	}
	if sizeArg == "" || pointsArg == "" {
		return estimate.Request{}, errors.New("either --request or both --size and --points are required")
	}

	w, h, err := parseSize(sizeArg)
	if err != nil {
		return estimate.Request{}, err
	}
	pts, err := parsePoints(pointsArg)
	if err != nil {
		return estimate.Request{}, err
	}
	return estimate.Request{ImageWidth: w, ImageHeight: h, Points: pts}, nil
}

func loadRequestFile(path string, stdin io.Reader) (estimate.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // G304: user-supplied request file
	}
	if err != nil {
		return estimate.Request{}, fmt.Errorf("failed to read request: %w", err)
	}

	var rf requestFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rf)
	default:
		err = json.Unmarshal(data, &rf)
	}
	if err != nil {
		return estimate.Request{}, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	return estimate.Request{ImageWidth: rf.ImageSize.Width, ImageHeight: rf.ImageSize.Height, Points: rf.Points}, nil
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	return w, h, nil
}

// parsePoints parses "x,y x,y ..." with space or semicolon separators.
func parsePoints(s string) ([]geometry.Point, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, errors.New("no points given")
	}
	pts := make([]geometry.Point, 0, len(fields))
	for i, f := range fields {
		xy := strings.Split(f, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("point %d: %q is not x,y", i+1, f)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: invalid x: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: invalid y: %w", i+1, err)
		}
		pts = append(pts, geometry.Pt(x, y))
	}
	return pts, nil
}
