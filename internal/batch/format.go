package batch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format renders a batch result as json, yaml or text.
func Format(res *Result, format string) (string, error) {
	switch format {
	case "json":
		bts, err := json.MarshalIndent(res, "", "  ")
		return string(bts), err
	case "yaml":
		bts, err := yaml.Marshal(res)
		return string(bts), err
	case "text", "":
		return formatText(res), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want text, json or yaml)", format)
	}
}

func formatText(res *Result) string {
	var b strings.Builder
	for _, j := range res.Jobs {
		fmt.Fprintf(&b, "%s [%s] %s", j.ID, j.Operation, j.Status)
		switch {
		case j.Error != "":
			fmt.Fprintf(&b, " (%s): %s", j.ErrorType, j.Error)
		case j.Pose != nil:
			p := j.Pose
			fmt.Fprintf(&b, " f=%.2f rect=%dx%d center=(%.4f, %.4f, %.4f) fov_y=%.2f",
				p.Fx, p.RectSize.Width, p.RectSize.Height,
				p.CameraCenter[0], p.CameraCenter[1], p.CameraCenter[2], p.RenderPose.FovYDeg)
			if p.Fallback.Applied {
				fmt.Fprintf(&b, " fallback=%s", p.Fallback.Reason)
			}
		case j.Rectification != nil:
			fmt.Fprintf(&b, " rect=%dx%d method=%s",
				j.Rectification.RectSize.Width, j.Rectification.RectSize.Height, j.Rectification.Method)
		}
		for _, o := range j.Outputs {
			fmt.Fprintf(&b, "\n  wrote %s", o)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d succeeded, %d failed, %d skipped (%d workers, %s)\n",
		res.Succeeded, res.Failed, res.Skipped, res.Workers, res.Duration.Round(time.Millisecond))
	return b.String()
}
