package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// CalibrationHandler reads and sets the keyboard reference line.
type CalibrationHandler struct {
	monitor Monitor
}

// NewCalibrationHandler creates a CalibrationHandler for m.
func NewCalibrationHandler(m Monitor) *CalibrationHandler {
	return &CalibrationHandler{monitor: m}
}

type calibrationRequest struct {
	Y *int `json:"y"`
}

type calibrationResponse struct {
	Calibrated bool `json:"calibrated"`
	Y          *int `json:"y"`
}

func (h *CalibrationHandler) current() calibrationResponse {
	y, ok := h.monitor.Calibration()
	if !ok {
		return calibrationResponse{}
	}
	return calibrationResponse{Calibrated: true, Y: &y}
}

// Calibrate handles GET /calibrate/{y}. The route only matches integers; the
// reply is plain text.
func (h *CalibrationHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	y, err := strconv.Atoi(mux.Vars(r)["y"])
	if err != nil {
		http.Error(w, "invalid y", http.StatusBadRequest)
		return
	}

	h.monitor.Calibrate(y)
	slog.Info("api: keyboard calibrated", "y", y)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Keyboard calibrated at y=%d", y)
}

// Get handles GET /api/calibration.
func (h *CalibrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.current())
}

// Put handles PUT /api/calibration with a body of {"y": <int>}.
func (h *CalibrationHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Y == nil {
		WriteError(w, http.StatusBadRequest, "y is required")
		return
	}

	h.monitor.Calibrate(*req.Y)
	slog.Info("api: keyboard calibrated", "y", *req.Y)

	WriteJSON(w, http.StatusOK, h.current())
}
