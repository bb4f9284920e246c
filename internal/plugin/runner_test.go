package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/ayusman/wristguard/internal/posture"
)

// installScript writes a plugin directory with a manifest and shell script.
func installScript(t *testing.T, dir string, manifest Manifest, script string) {
	t.Helper()

	manifest.Executable = "run.sh"
	pluginDir := writeManifest(t, dir, manifest)
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func TestRunner_Handle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "calls")

	// Each plugin appends its name and the request to the same file.
	record := func(name string) string {
		return "#!/bin/sh\nprintf '" + name + " ' >> " + out + "\ncat >> " + out + "\necho >> " + out + "\necho '{\"success\":true}'\n"
	}
	installScript(t, tmpDir, Manifest{Name: "a-all"}, record("a-all"))
	installScript(t, tmpDir, Manifest{Name: "b-cleared", Events: []string{"cleared"}}, record("b-cleared"))
	installScript(t, tmpDir, Manifest{Name: "c-failing"}, "#!/bin/sh\necho '{\"success\":false,\"error\":\"no speaker\"}'\n")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	runner := NewRunner(manager, NewExecutor(5*time.Second))

	ev := alerting.Event{ID: "ep-9", Alert: posture.WristAboveElbow, Kind: alerting.Raised, At: time.Now(), Since: time.Now()}
	err := runner.Handle(context.Background(), ev)
	if err == nil || !strings.Contains(err.Error(), "no speaker") {
		t.Errorf("Handle() error = %v, want failing plugin reported", err)
	}

	data, readErr := os.ReadFile(out)
	if readErr != nil {
		t.Fatalf("read calls: %v", readErr)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("calls = %q, want only a-all", data)
	}

	name, body, _ := strings.Cut(lines[0], " ")
	if name != "a-all" {
		t.Errorf("called %q, want a-all", name)
	}
	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("invalid request %q: %v", body, err)
	}
	if req.EpisodeID != "ep-9" || req.Alert != "WRIST_ABOVE_ELBOW" || req.Event != "raised" {
		t.Errorf("request = %+v", req)
	}
}

func TestNewRequest(t *testing.T) {
	since := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("raised", func(t *testing.T) {
		ev := alerting.Event{ID: "ep", Alert: posture.WristTooHigh, Kind: alerting.Raised, Since: since, At: since.Add(5 * time.Second)}
		req := NewRequest(ev, json.RawMessage(`{"x":1}`))

		if req.DurationMS != 0 {
			t.Errorf("DurationMS = %d, want 0 for raised", req.DurationMS)
		}
		if req.Message != "Wrist too high. Lower your hands to the keyboard." {
			t.Errorf("Message = %q", req.Message)
		}
		if string(req.Config) != `{"x":1}` {
			t.Errorf("Config = %s", req.Config)
		}
	})

	t.Run("cleared", func(t *testing.T) {
		ev := alerting.Event{ID: "ep", Alert: posture.WristAboveElbow, Kind: alerting.Cleared, Since: since, At: since.Add(3250 * time.Millisecond)}
		req := NewRequest(ev, nil)

		if req.DurationMS != 3250 {
			t.Errorf("DurationMS = %d, want 3250", req.DurationMS)
		}
		if req.Message != "Wrist above elbow: resolved after 3.3s" {
			t.Errorf("Message = %q", req.Message)
		}
	})
}

func TestManifest_Wants(t *testing.T) {
	m := Manifest{Events: []string{"raised"}, Alerts: []string{"WRIST_TOO_HIGH"}}

	tests := []struct {
		kind, alert string
		want        bool
	}{
		{"raised", "WRIST_TOO_HIGH", true},
		{"cleared", "WRIST_TOO_HIGH", false},
		{"raised", "WRIST_ABOVE_ELBOW", false},
	}
	for _, tt := range tests {
		if got := m.Wants(tt.kind, tt.alert); got != tt.want {
			t.Errorf("Wants(%s, %s) = %v, want %v", tt.kind, tt.alert, got, tt.want)
		}
	}

	var all Manifest
	if !all.Wants("cleared", "ANYTHING") {
		t.Error("empty filters should match everything")
	}
}
