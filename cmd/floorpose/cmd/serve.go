package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for pose and rectification",
	Long: `Start an HTTP server that exposes the pose and rectification pipeline.

The server provides the following endpoints:
  POST /estimate-homography - Corners, rectangle size and both homographies
  POST /estimate-pose       - Intrinsics, extrinsics and render pose
  GET  /ws                  - WebSocket stream of either estimate
  GET  /health              - Health check endpoint
  GET  /metrics             - Prometheus metrics

Examples:
  floorpose serve
  floorpose serve --port 8080
  floorpose serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxBodyKB := cfg.Server.MaxBodyKB
		if cmd.Flags().Changed("max-body-kb") {
			maxBodyKB, _ = cmd.Flags().GetInt("max-body-kb")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		imagesEnabled := cfg.Server.ImagesEnabled
		if cmd.Flags().Changed("images-enable") {
			imagesEnabled, _ = cmd.Flags().GetBool("images-enable")
		}

		rateLimitEnabled := cfg.Server.RateLimit.Enabled
		if cmd.Flags().Changed("rate-limit-enabled") {
			rateLimitEnabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
		}

		requestsPerSecond := cfg.Server.RateLimit.RequestsPerSecond
		if cmd.Flags().Changed("requests-per-second") {
			requestsPerSecond, _ = cmd.Flags().GetFloat64("requests-per-second")
		}

		burst := cfg.Server.RateLimit.Burst
		if cmd.Flags().Changed("burst") {
			burst, _ = cmd.Flags().GetInt("burst")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}
		if rateLimitEnabled && requestsPerSecond <= 0 {
			return fmt.Errorf("invalid requests per second: %g (must be positive)", requestsPerSecond)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		srv, err := server.NewServer(server.Config{
			Host:             host,
			Port:             port,
			CORSOrigin:       corsOrigin,
			MaxBodyKB:        int64(maxBodyKB),
			TimeoutSec:       timeout,
			ImagesEnabled:    imagesEnabled,
			OverlayColor:     cfg.Output.OverlayColor,
			OverlayThickness: cfg.Output.OverlayThickness,
			RectifiedFormat:  cfg.Output.RectifiedFormat,
			JPEGQuality:      cfg.Output.JPEGQuality,
			MaxRectPixels:    cfg.Output.MaxRectPixels,
			Solver:           cfg.ToSolverOptions(),
			RateLimit: server.RateLimitSettings{
				Enabled:           rateLimitEnabled,
				RequestsPerSecond: requestsPerSecond,
				Burst:             burst,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		// Handlers carry their own timeout; the write deadline leaves room to
		// encode the response after it fires.
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout+5) * time.Second,
		}

		go func() {
			slog.Info("Starting floorpose server", "host", host, "port", port,
				"images_enabled", imagesEnabled, "rate_limit", rateLimitEnabled)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-body-kb", 20480, "maximum request body size in KB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("images-enable", true, "enable rectified and overlay image responses")
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Float64("requests-per-second", 20, "sustained requests per second per client")
	serveCmd.Flags().Int("burst", 40, "maximum burst of requests per client")
}
