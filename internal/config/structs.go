//nolint:lll
package config

// Config represents the complete configuration for the floorpose application.
// It covers every command (pose, rectify, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pose solver settings
	Pose PoseConfig `mapstructure:"pose" yaml:"pose" json:"pose"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// PoseConfig tunes the focal-length solve.
type PoseConfig struct {
	FallbackScale float64 `mapstructure:"fallback_scale" yaml:"fallback_scale" json:"fallback_scale"`
	FocalEpsilon  float64 `mapstructure:"focal_epsilon" yaml:"focal_epsilon" json:"focal_epsilon"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format           string `mapstructure:"format" yaml:"format" json:"format"`
	File             string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayColor     string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	OverlayThickness int    `mapstructure:"overlay_thickness" yaml:"overlay_thickness" json:"overlay_thickness"`
	RectifiedFormat  string `mapstructure:"rectified_format" yaml:"rectified_format" json:"rectified_format"`
	JPEGQuality      int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality" json:"jpeg_quality"`
	MaxRectPixels    int    `mapstructure:"max_rect_pixels" yaml:"max_rect_pixels" json:"max_rect_pixels"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyKB       int             `mapstructure:"max_body_kb" yaml:"max_body_kb" json:"max_body_kb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	ImagesEnabled   bool            `mapstructure:"images_enabled" yaml:"images_enabled" json:"images_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst" json:"burst"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
