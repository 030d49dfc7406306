package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/spf13/cobra"
)

var poseCmd = &cobra.Command{
	Use:   "pose",
	Short: "Estimate the camera pose from marked floor points",
	Long: `Estimate camera intrinsics, rotation, translation and a render-ready pose
from four or more points marked around a flat region of a photo.

The focal length comes from the two vanishing points of the rectangle. When
that solve is degenerate a size based fallback is used and reported.

Examples:
  floorpose pose --size 1280x720 --points "412,318 905,301 1130,640 170,668"
  floorpose pose --request req.json --format json
  floorpose pose --request req.yaml --fallback-scale 1.0 -o pose.yaml -f yaml`,
	RunE: runPose,
}

func init() {
	rootCmd.AddCommand(poseCmd)
	addRequestFlags(poseCmd)
	poseCmd.Flags().Float64("fallback-scale", 0, "override the fallback focal scale (default from config)")
}

func runPose(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	req, err := readRequest(cmd)
	if err != nil {
		return err
	}

	opts := GetConfig().ToSolverOptions()
	if cmd.Flags().Changed("fallback-scale") {
		opts.FallbackScale, _ = cmd.Flags().GetFloat64("fallback-scale")
		if opts.FallbackScale <= 0 {
			return fmt.Errorf("--fallback-scale must be positive, got %g", opts.FallbackScale)
		}
	}

	pose, err := estimate.ComputePoseWithOptions(req, opts)
	if err != nil {
		return err
	}
	if pose.Fallback.Applied {
		slog.Warn("Focal length fallback applied", "reason", pose.Fallback.Reason, "focal", pose.Fallback.Focal)
	}
	slog.Debug("Pose estimated", "fx", pose.Fx, "fov_y", pose.RenderPose.FovYDeg)

	return writeResult(cmd, format, pose, func(w io.Writer) { writePoseText(w, pose) })
}
