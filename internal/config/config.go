package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/raster"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	opts := camera.DefaultOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pose: PoseConfig{
			FallbackScale: opts.FallbackScale,
			FocalEpsilon:  opts.FocalEpsilon,
		},
		Output: OutputConfig{
			Format:           "text",
			OverlayColor:     "#FFFF00",
			OverlayThickness: 3,
			RectifiedFormat:  raster.FormatPNG,
			JPEGQuality:      90,
			MaxRectPixels:    raster.DefaultMaxPixels,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxBodyKB:       20480,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			ImagesEnabled:   true,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	validImageFormats := []string{raster.FormatPNG, raster.FormatJPEG, raster.FormatWebP}
	if !slices.Contains(validImageFormats, c.Output.RectifiedFormat) {
		return fmt.Errorf("invalid rectified format: %s (must be one of: %s)",
			c.Output.RectifiedFormat, strings.Join(validImageFormats, ", "))
	}
	if _, err := raster.ParseHexColor(c.Output.OverlayColor); err != nil {
		return fmt.Errorf("invalid overlay color: %w", err)
	}
	if c.Output.OverlayThickness <= 0 {
		return fmt.Errorf("invalid overlay thickness: %d (must be positive)", c.Output.OverlayThickness)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d (must be between 1 and 100)", c.Output.JPEGQuality)
	}
	if c.Output.MaxRectPixels <= 0 {
		return fmt.Errorf("invalid max rect pixels: %d (must be positive)", c.Output.MaxRectPixels)
	}

	if c.Pose.FallbackScale <= 0 {
		return fmt.Errorf("invalid pose fallback scale: %g (must be positive)", c.Pose.FallbackScale)
	}
	if c.Pose.FocalEpsilon < 0 {
		return fmt.Errorf("invalid pose focal epsilon: %g (must not be negative)", c.Pose.FocalEpsilon)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxBodyKB <= 0 {
		return fmt.Errorf("invalid max body size: %d (must be positive)", c.Server.MaxBodyKB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid rate limit: %g requests/s (must be positive)", c.Server.RateLimit.RequestsPerSecond)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid rate limit burst: %d (must be positive)", c.Server.RateLimit.Burst)
		}
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToSolverOptions converts the pose section to camera solver options.
func (c *Config) ToSolverOptions() camera.Options {
	return camera.Options{
		FallbackScale: c.Pose.FallbackScale,
		FocalEpsilon:  c.Pose.FocalEpsilon,
	}
}
