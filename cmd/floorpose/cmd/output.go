package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/homography"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// outputFormat resolves --format against the configured default.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = GetConfig().Output.Format
	}
	switch format {
	case "text", "json", "yaml":
		return format, nil
	case "":
		return "text", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// writeResult renders v in the chosen format to --output or stdout.
func writeResult(cmd *cobra.Command, format string, v interface{}, text func(io.Writer)) error {
	var out string
	switch format {
	case "json":
		bts, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		out = string(bts) + "\n"
	case "yaml":
		bts, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		out = string(bts)
	default:
		var b strings.Builder
		text(&b)
		out = b.String()
	}
	return emit(cmd, out)
}

func emit(cmd *cobra.Command, out string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile == "" {
		outputFile = GetConfig().Output.File
	}
	if outputFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func writeRectificationText(w io.Writer, r *estimate.Rectification) {
	fmt.Fprintf(w, "Ordered points (%s):\n", r.Method)
	for i, p := range r.Quad {
		fmt.Fprintf(w, "  %d: (%.2f, %.2f)\n", i+1, p.X, p.Y)
	}
	fmt.Fprintf(w, "Rectified size: %dx%d\n", r.RectSize.Width, r.RectSize.Height)
	writeHomography(w, "H_plane2img", r.Forward)
	writeHomography(w, "H_img2plane", r.Inverse)
}

func writePoseText(w io.Writer, p *estimate.PoseResult) {
	fmt.Fprintf(w, "Image size: %dx%d\n", p.ImageSize.Width, p.ImageSize.Height)
	fmt.Fprintf(w, "Rectified size: %dx%d\n", p.RectSize.Width, p.RectSize.Height)
	fmt.Fprintf(w, "Focal length: %.4f", p.Fx)
	if p.Fallback.Applied {
		fmt.Fprintf(w, " (fallback: %s)", p.Fallback.Reason)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Principal point: (%.2f, %.2f)\n", p.Cx, p.Cy)
	writeMat3(w, "K", p.K)
	writeMat3(w, "R", p.R)
	fmt.Fprintf(w, "t: %s\n", formatVec(p.T[:]))
	fmt.Fprintf(w, "Camera center: %s\n", formatVec(p.CameraCenter[:]))
	fmt.Fprintln(w, "Render pose:")
	fmt.Fprintf(w, "  position: %s\n", formatVec(p.RenderPose.Position[:]))
	fmt.Fprintf(w, "  quaternion: %s\n", formatVec(p.RenderPose.Quaternion[:]))
	fmt.Fprintf(w, "  fov_y: %.4f deg\n", p.RenderPose.FovYDeg)
}

func writeHomography(w io.Writer, name string, m homography.Matrix) {
	fmt.Fprintf(w, "%s:\n", name)
	for _, row := range m.Rows() {
		fmt.Fprintf(w, "  %s\n", formatVec(row))
	}
}

func writeMat3(w io.Writer, name string, m camera.Mat3) {
	fmt.Fprintf(w, "%s:\n", name)
	for _, row := range m {
		fmt.Fprintf(w, "  %s\n", formatVec(row[:]))
	}
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
