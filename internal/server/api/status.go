package api

import (
	"net/http"

	"github.com/ayusman/wristguard/internal/posture"
	"github.com/ayusman/wristguard/internal/stream"
)

// StatusResponse is the body of GET /api/status and of websocket pushes.
type StatusResponse struct {
	posture.Status
	Stream *stream.Stats `json:"stream,omitempty"`
}

// StatusHandler reports the latest evaluation.
type StatusHandler struct {
	monitor Monitor
	hub     *stream.Hub
}

// NewStatusHandler creates a StatusHandler. hub may be nil.
func NewStatusHandler(m Monitor, hub *stream.Hub) *StatusHandler {
	return &StatusHandler{monitor: m, hub: hub}
}

// Snapshot builds the current status.
func (h *StatusHandler) Snapshot() StatusResponse {
	resp := StatusResponse{Status: h.monitor.Status()}
	if h.hub != nil {
		stats := h.hub.Stats()
		resp.Stream = &stats
	}
	return resp
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Snapshot())
}
