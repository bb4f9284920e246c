package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/wristguard/internal/stream"
)

// StreamHandler serves annotated frames from the hub as MJPEG.
type StreamHandler struct {
	hub *stream.Hub
}

// NewStreamHandler creates a new StreamHandler reading from hub.
func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// ServeHTTP streams frames until the client leaves or the hub closes.
// A slow client skips frames rather than delaying other viewers.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub := h.hub.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		frame, err := sub.Next(r.Context())
		if err != nil {
			return
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame.Data)); err != nil {
			return
		}
		if _, err := w.Write(frame.Data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
