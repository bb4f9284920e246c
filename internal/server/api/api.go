// Package api provides the JSON handlers of the wristguard HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ayusman/wristguard/internal/posture"
	"github.com/ayusman/wristguard/internal/store"
)

// Monitor is the part of posture.Monitor the API needs.
type Monitor interface {
	Calibrate(y int)
	Calibration() (int, bool)
	Status() posture.Status
}

// EpisodeLister lists journaled alert episodes, newest first.
type EpisodeLister interface {
	List(ctx context.Context, limit int) ([]*store.Episode, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}
