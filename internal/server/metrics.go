package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorpose_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floorpose_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Estimation metrics
	estimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorpose_estimates_total",
			Help: "Total number of estimates by operation and outcome",
		},
		[]string{"operation", "status"}, // operation: homography, pose; status: success, validation, computation
	)

	estimateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floorpose_estimate_duration_seconds",
			Help:    "Geometry computation time in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"operation"},
	)

	focalFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorpose_focal_fallbacks_total",
			Help: "Pose solves that used the size-based focal length",
		},
		[]string{"reason"},
	)

	imageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floorpose_image_processing_duration_seconds",
			Help:    "Time spent decoding, warping and encoding request images",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	rateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floorpose_rate_limit_hits_total",
			Help: "Total number of rate limited requests",
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floorpose_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorpose_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
