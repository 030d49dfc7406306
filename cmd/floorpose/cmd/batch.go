package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/MeKo-Tech/floorpose/internal/batch"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [job-file]",
	Short: "Run many pose and rectification jobs from a file",
	Long: `Run the jobs listed in a JSON, JSON Lines or YAML file concurrently.

Each job names an operation (pose or homography), the image size and the
marked points. Homography jobs may also name a source image plus rectified
and overlay outputs; relative paths resolve against the job file.

Results are reported in input order.

Examples:
  floorpose batch jobs.yaml
  floorpose batch jobs.jsonl --workers 8 --continue-on-error
  floorpose batch jobs.json --format json --output results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().Bool("continue-on-error", false, "keep running remaining jobs after a failure")
	batchCmd.Flags().StringP("format", "f", "", "output format: text, json, yaml (default from config)")
	batchCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	jobs, err := batch.LoadJobs(args[0])
	if err != nil {
		return err
	}

	bcfg := batch.DefaultConfig()
	bcfg.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		bcfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if bcfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", bcfg.Workers)
	}
	bcfg.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		bcfg.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	bcfg.Solver = cfg.ToSolverOptions()
	bcfg.OverlayThickness = cfg.Output.OverlayThickness
	bcfg.JPEGQuality = cfg.Output.JPEGQuality
	bcfg.MaxRectPixels = cfg.Output.MaxRectPixels
	col, err := raster.ParseHexColor(cfg.Output.OverlayColor)
	if err != nil {
		return fmt.Errorf("invalid overlay color: %w", err)
	}
	bcfg.OverlayColor = col

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	slog.Info("Starting batch", "jobs", len(jobs), "workers", bcfg.Workers,
		"continue_on_error", bcfg.ContinueOnError)
	res, runErr := batch.Run(ctx, jobs, bcfg)
	if res != nil {
		out, err := batch.Format(res, format)
		if err != nil {
			return err
		}
		if err := emit(cmd, out); err != nil {
			return err
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("batch interrupted: %w", runErr)
		}
		return runErr
	}
	if res != nil && res.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", res.Failed, len(res.Jobs))
	}
	return nil
}
