package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is one reply on the /ws stream.
type WebSocketResponse struct {
	Type      string      `json:"type"` // "homography", "pose" or "error"
	Status    string      `json:"status"`
	RequestID string      `json:"request_id,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Field     string      `json:"field,omitempty"`
	Stage     string      `json:"stage,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "" || s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// webSocketHandler streams estimates while the user drags points: every text
// message is an EstimateRequest whose type selects the operation.
func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	conn.SetReadLimit(s.maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage answers one request message. Writes happen only
// from the reader goroutine.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	requestID := uuid.NewString()

	var req EstimateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketResponse(conn, WebSocketResponse{
			Type: "error", Status: statusError, RequestID: requestID,
			ErrorType: "invalid_request", Error: fmt.Sprintf("failed to parse request: %v", err),
		})
		return
	}

	var (
		result interface{}
		err    error
	)
	switch req.Type {
	case opPose:
		result, err = s.computePose(req, requestID)
	case opHomography, "":
		req.Type = opHomography
		result, err = s.computeHomography(req, requestID)
	default:
		s.sendWebSocketResponse(conn, WebSocketResponse{
			Type: "error", Status: statusError, RequestID: requestID,
			ErrorType: "invalid_request", Error: "unsupported request type: " + req.Type,
		})
		return
	}

	if err != nil {
		er, _ := errorResponseFor(requestID, err)
		s.sendWebSocketResponse(conn, WebSocketResponse{
			Type: req.Type, Status: statusError, RequestID: requestID,
			Error: er.Error, ErrorType: er.ErrorType, Field: er.Field, Stage: er.Stage,
		})
		return
	}
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type: req.Type, Status: statusOK, RequestID: requestID, Result: result,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
