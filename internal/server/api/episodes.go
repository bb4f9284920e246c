package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/wristguard/internal/store"
)

// Page size bounds for GET /api/episodes.
const (
	DefaultEpisodeLimit = 50
	MaxEpisodeLimit     = 500
)

// EpisodesHandler lists journaled alert episodes.
type EpisodesHandler struct {
	episodes EpisodeLister
}

// NewEpisodesHandler creates an EpisodesHandler backed by l.
func NewEpisodesHandler(l EpisodeLister) *EpisodesHandler {
	return &EpisodesHandler{episodes: l}
}

type listEpisodesResponse struct {
	Episodes []*store.Episode `json:"episodes"`
}

// ServeHTTP handles GET /api/episodes?limit=N.
func (h *EpisodesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEpisodeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxEpisodeLimit)
	}

	episodes, err := h.episodes.List(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}
	if episodes == nil {
		episodes = []*store.Episode{}
	}

	WriteJSON(w, http.StatusOK, listEpisodesResponse{Episodes: episodes})
}
