package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/estimate"
	"github.com/MeKo-Tech/floorpose/internal/geomerr"
	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/MeKo-Tech/floorpose/internal/version"
	"github.com/google/uuid"
)

const (
	statusOK    = "ok"
	statusError = "error"

	opHomography = "homography"
	opPose       = "pose"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// homographyHandler serves POST /estimate-homography.
func (s *Server) homographyHandler(w http.ResponseWriter, r *http.Request) {
	req, requestID, ok := s.decodeEstimateRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.computeHomography(req, requestID)
	if err != nil {
		s.writeEstimateError(w, requestID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// poseHandler serves POST /estimate-pose.
func (s *Server) poseHandler(w http.ResponseWriter, r *http.Request) {
	req, requestID, ok := s.decodeEstimateRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.computePose(req, requestID)
	if err != nil {
		s.writeEstimateError(w, requestID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeEstimateRequest(w http.ResponseWriter, r *http.Request) (EstimateRequest, string, bool) {
	var req EstimateRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, "", false
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, ErrorResponse{RequestID: requestID, ErrorType: "request_too_large",
				Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}, http.StatusRequestEntityTooLarge)
			return req, requestID, false
		}
		s.writeErrorResponse(w, ErrorResponse{RequestID: requestID, ErrorType: "invalid_request",
			Error: fmt.Sprintf("invalid JSON body: %v", err)}, http.StatusBadRequest)
		return req, requestID, false
	}
	return req, requestID, true
}

// computeHomography runs the rectification and, when asked, renders the
// rectified and overlay images. Image failures become a note.
func (s *Server) computeHomography(req EstimateRequest, requestID string) (*HomographyResponse, error) {
	if err := req.Validate(); err != nil {
		recordOutcome(opHomography, err)
		return nil, err
	}
	start := time.Now()
	rect, err := estimate.ComputeRectification(req.ToRequest())
	estimateDuration.WithLabelValues(opHomography).Observe(time.Since(start).Seconds())
	recordOutcome(opHomography, err)
	if err != nil {
		slog.Info("Homography estimate rejected", "request_id", requestID, "error", err)
		return nil, err
	}

	resp := &HomographyResponse{Status: statusOK, RequestID: requestID, Rectification: *rect}
	if req.IncludeImage && req.ImageB64 != "" {
		if !s.imagesEnabled {
			resp.Note = "image output disabled"
		} else if err := s.renderImages(req.ImageB64, rect, resp); err != nil {
			slog.Warn("Image processing failed", "request_id", requestID, "error", err)
			resp.Note = err.Error()
		}
	}
	return resp, nil
}

func (s *Server) renderImages(dataURL string, rect *estimate.Rectification, resp *HomographyResponse) error {
	start := time.Now()
	defer func() { imageProcessingDuration.Observe(time.Since(start).Seconds()) }()

	if err := raster.CheckSize(rect.RectSize, s.maxRectPixels); err != nil {
		return err
	}
	img, err := raster.DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	warped, err := raster.Warp(img, rect.Forward, rect.RectSize, s.maxRectPixels)
	if err != nil {
		return err
	}
	rectified, err := raster.EncodeDataURL(warped, s.rectifiedFormat, s.jpegQuality)
	if err != nil {
		return err
	}
	overlay := raster.DrawOverlay(img, rect.Quad.Points(), s.overlayColor, s.overlayThickness)
	overlayURL, err := raster.EncodeDataURL(overlay, raster.FormatJPEG, s.jpegQuality)
	if err != nil {
		return err
	}
	resp.RectifiedImage = rectified
	resp.OverlayImage = overlayURL
	return nil
}

func (s *Server) computePose(req EstimateRequest, requestID string) (*PoseResponse, error) {
	if err := req.Validate(); err != nil {
		recordOutcome(opPose, err)
		return nil, err
	}
	start := time.Now()
	pose, err := estimate.ComputePoseWithOptions(req.ToRequest(), s.solver)
	estimateDuration.WithLabelValues(opPose).Observe(time.Since(start).Seconds())
	recordOutcome(opPose, err)
	if err != nil {
		slog.Info("Pose estimate rejected", "request_id", requestID, "error", err)
		return nil, err
	}
	if pose.Fallback.Applied {
		focalFallbacksTotal.WithLabelValues(pose.Fallback.Reason).Inc()
		slog.Warn("Focal length fallback applied",
			"request_id", requestID, "reason", pose.Fallback.Reason, "focal", pose.Fallback.Focal)
	}
	return &PoseResponse{Status: statusOK, RequestID: requestID, PoseResult: *pose}, nil
}

func recordOutcome(op string, err error) {
	status := "success"
	switch {
	case err == nil:
	case geomerr.IsValidation(err):
		status = "validation"
	case geomerr.IsComputation(err):
		status = "computation"
	default:
		status = "error"
	}
	estimatesTotal.WithLabelValues(op, status).Inc()
}

// errorResponseFor maps a pipeline error to a response body and status code.
func errorResponseFor(requestID string, err error) (ErrorResponse, int) {
	resp := ErrorResponse{RequestID: requestID, Error: err.Error()}
	var ve *geomerr.ValidationError
	var ce *geomerr.ComputationError
	switch {
	case errors.As(err, &ve):
		resp.ErrorType = "validation"
		resp.Field = ve.Field
		return resp, http.StatusUnprocessableEntity
	case errors.As(err, &ce):
		resp.ErrorType = "computation"
		resp.Stage = ce.Stage
		return resp, http.StatusUnprocessableEntity
	default:
		resp.ErrorType = "internal"
		return resp, http.StatusInternalServerError
	}
}

func (s *Server) writeEstimateError(w http.ResponseWriter, requestID string, err error) {
	resp, code := errorResponseFor(requestID, err)
	s.writeErrorResponse(w, resp, code)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	resp.Status = statusError
	s.writeJSON(w, statusCode, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode response", "error", err)
	}
}
