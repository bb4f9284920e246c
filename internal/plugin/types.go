// Package plugin runs external programs in response to posture alerts.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Manifest describes a plugin's metadata and which events it wants.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Events filters by event kind ("raised", "cleared"). Empty means all.
	Events []string `json:"events,omitempty"`
	// Alerts filters by alert name. Empty means all.
	Alerts []string `json:"alerts,omitempty"`
	// Config is passed through to the plugin on every request.
	Config json.RawMessage `json:"config,omitempty"`
}

// Wants reports whether the plugin subscribes to the given event kind and alert.
func (m *Manifest) Wants(kind, alert string) bool {
	if len(m.Events) > 0 && !slices.Contains(m.Events, kind) {
		return false
	}
	if len(m.Alerts) > 0 && !slices.Contains(m.Alerts, alert) {
		return false
	}
	return true
}

// Request is the JSON document written to a plugin's stdin.
type Request struct {
	Event      string          `json:"event"`
	Alert      string          `json:"alert"`
	EpisodeID  string          `json:"episode_id"`
	At         time.Time       `json:"at"`
	Since      time.Time       `json:"since"`
	DurationMS int64           `json:"duration_ms"`
	Message    string          `json:"message"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
