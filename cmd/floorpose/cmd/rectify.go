package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/spf13/cobra"
)

var rectifyCmd = &cobra.Command{
	Use:   "rectify",
	Short: "Compute the rectifying homography and optionally warp the image",
	Long: `Pick the four corners of the marked region, compute the homography between
the image and an upright rectangle of matching size, and print both
directions.

With --image, the photo can be warped into the rectangle (--rectified) and
the selected corners drawn on a copy of it (--overlay).

Examples:
  floorpose rectify --size 1280x720 --points "412,318 905,301 1130,640 170,668"
  floorpose rectify --request req.json --image photo.jpg --rectified floor.png --overlay marked.jpg`,
	RunE: runRectify,
}

func init() {
	rootCmd.AddCommand(rectifyCmd)
	addRequestFlags(rectifyCmd)
	rectifyCmd.Flags().String("image", "", "source image (png, jpeg, webp, bmp)")
	rectifyCmd.Flags().String("rectified", "", "write the rectified image to this path")
	rectifyCmd.Flags().String("overlay", "", "write the source image with the corner polygon drawn to this path")
	rectifyCmd.Flags().String("overlay-color", "", "overlay color as #RRGGBB (default from config)")
	rectifyCmd.Flags().Int("overlay-thickness", 0, "overlay line thickness in pixels (default from config)")
}

func runRectify(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	req, err := readRequest(cmd)
	if err != nil {
		return err
	}

	imagePath, _ := cmd.Flags().GetString("image")
	rectifiedPath, _ := cmd.Flags().GetString("rectified")
	overlayPath, _ := cmd.Flags().GetString("overlay")
	if imagePath == "" && (rectifiedPath != "" || overlayPath != "") {
		return errors.New("--rectified and --overlay require --image")
	}

	rect, err := estimate.ComputeRectification(req)
	if err != nil {
		return err
	}

	if imagePath != "" {
		if err := writeRectifyImages(cmd, rect, imagePath, rectifiedPath, overlayPath); err != nil {
			return err
		}
	}

	return writeResult(cmd, format, rect, func(w io.Writer) { writeRectificationText(w, rect) })
}

func writeRectifyImages(cmd *cobra.Command, rect *estimate.Rectification, imagePath, rectifiedPath, overlayPath string) error {
	cfg := GetConfig()
	if rectifiedPath != "" {
		if err := raster.CheckSize(rect.RectSize, cfg.Output.MaxRectPixels); err != nil {
			return err
		}
	}
	img, err := raster.Load(imagePath)
	if err != nil {
		return err
	}

	if rectifiedPath != "" {
		warped, err := raster.Warp(img, rect.Forward, rect.RectSize, cfg.Output.MaxRectPixels)
		if err != nil {
			return err
		}
		if err := raster.Save(warped, rectifiedPath, cfg.Output.JPEGQuality); err != nil {
			return err
		}
		slog.Info("Wrote rectified image", "path", rectifiedPath,
			"width", rect.RectSize.Width, "height", rect.RectSize.Height)
	}

	if overlayPath != "" {
		colorStr := cfg.Output.OverlayColor
		if cmd.Flags().Changed("overlay-color") {
			colorStr, _ = cmd.Flags().GetString("overlay-color")
		}
		col, err := raster.ParseHexColor(colorStr)
		if err != nil {
			return fmt.Errorf("invalid overlay color: %w", err)
		}
		thickness := cfg.Output.OverlayThickness
		if cmd.Flags().Changed("overlay-thickness") {
			thickness, _ = cmd.Flags().GetInt("overlay-thickness")
		}
		if thickness < 1 {
			return fmt.Errorf("overlay thickness must be at least 1, got %d", thickness)
		}
		overlay := raster.DrawOverlay(img, rect.Quad.Points(), col, thickness)
		if err := raster.Save(overlay, overlayPath, cfg.Output.JPEGQuality); err != nil {
			return err
		}
		slog.Info("Wrote overlay image", "path", overlayPath)
	}
	return nil
}
