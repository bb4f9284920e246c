// Package main provides a chime plugin that plays a short sound when a
// posture alert is raised or cleared.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event  string          `json:"event"`
	Alert  string          `json:"alert"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config maps event kinds to sound files.
type Config struct {
	Raised  string `json:"raised"`
	Cleared string `json:"cleared"`
}

// defaultSounds are used when the config does not name a file.
var defaultSounds = map[string]map[string]string{
	"darwin": {
		"raised":  "/System/Library/Sounds/Basso.aiff",
		"cleared": "/System/Library/Sounds/Glass.aiff",
	},
	"linux": {
		"raised":  "/usr/share/sounds/freedesktop/stereo/dialog-warning.oga",
		"cleared": "/usr/share/sounds/freedesktop/stereo/complete.oga",
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	sound, err := soundFor(runtime.GOOS, req.Event, cfg)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := play(sound); err != nil {
		writeErrorResponse(fmt.Sprintf("play %s failed: %v", sound, err))
		return
	}

	writeSuccessResponse()
}

// soundFor picks the file to play for an event kind.
func soundFor(goos, event string, cfg Config) (string, error) {
	var sound string
	switch event {
	case "raised":
		sound = cfg.Raised
	case "cleared":
		sound = cfg.Cleared
	default:
		return "", fmt.Errorf("unknown event: %s", event)
	}
	if sound == "" {
		sound = defaultSounds[goos][event]
	}
	return sound, nil
}

// play uses the platform player, falling back to the terminal bell.
func play(sound string) error {
	var cmd *exec.Cmd
	switch {
	case sound == "":
	case runtime.GOOS == "darwin":
		cmd = exec.Command("afplay", sound)
	case runtime.GOOS == "linux":
		cmd = exec.Command("paplay", sound)
	}

	if cmd == nil {
		_, err := fmt.Fprint(os.Stderr, "\a")
		return err
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
