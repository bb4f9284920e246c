// Package main provides a desktop notification plugin.
// It posts a notification through AppleScript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event     string          `json:"event"`
	Alert     string          `json:"alert"`
	EpisodeID string          `json:"episode_id"`
	Message   string          `json:"message"`
	Config    json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the plugin section of plugin.json.
type Config struct {
	Title string `json:"title"`
	Sound string `json:"sound"` // macOS only
	// Urgency is passed to notify-send: low, normal or critical.
	Urgency string `json:"urgency"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := Config{Title: "Wristguard", Urgency: "normal"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	if req.Message == "" {
		writeErrorResponse("message is required")
		return
	}

	if err := notify(cfg, req.Message); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}

	writeSuccessResponse()
}

func notify(cfg Config, message string) error {
	switch runtime.GOOS {
	case "darwin":
		return run("osascript", "-e", buildAppleScript(cfg, message))
	case "linux":
		return run("notify-send", "--app-name=wristguard", "--urgency="+cfg.Urgency, cfg.Title, message)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// buildAppleScript generates a display notification script.
func buildAppleScript(cfg Config, message string) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(message), escape(cfg.Title))
	if cfg.Sound != "" {
		script += fmt.Sprintf(` sound name "%s"`, escape(cfg.Sound))
	}
	return script
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
