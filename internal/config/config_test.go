package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Posture.WristTooHighAfter != 5*time.Second || cfg.Posture.WristAboveElbowAfter != 2*time.Second {
		t.Errorf("thresholds = %v / %v", cfg.Posture.WristTooHighAfter, cfg.Posture.WristAboveElbowAfter)
	}
	if cfg.Posture.MarginPixels != 20 {
		t.Errorf("margin = %d, want 20", cfg.Posture.MarginPixels)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("expected defaults, got %+v", cfg.Server)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
camera:
  source: /dev/video2
posture:
  wrist_too_high_after: 7s
  margin_pixels: 35
server:
  addr: ":8080"
  status_interval: 500ms
redis:
  addr: localhost:6379
log:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.Source != "/dev/video2" {
		t.Errorf("camera.source = %q", cfg.Camera.Source)
	}
	if cfg.Camera.FPS != 30 {
		t.Errorf("camera.fps = %d, want default 30", cfg.Camera.FPS)
	}
	if cfg.Posture.WristTooHighAfter != 7*time.Second {
		t.Errorf("wrist_too_high_after = %v, want 7s", cfg.Posture.WristTooHighAfter)
	}
	if cfg.Posture.WristAboveElbowAfter != 2*time.Second {
		t.Errorf("wrist_above_elbow_after = %v, want default 2s", cfg.Posture.WristAboveElbowAfter)
	}
	if cfg.Posture.MarginPixels != 35 {
		t.Errorf("margin_pixels = %d", cfg.Posture.MarginPixels)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.StatusInterval != 500*time.Millisecond {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Channel != "wristguard:alerts" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("posture: [unclosed"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("posture:\n  wrist_too_high_after: soon\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty source", func(c *Config) { c.Camera.Source = "" }, "camera.source"},
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }, "camera.fps"},
		{"confidence above one", func(c *Config) { c.Detector.MinDetectionConfidence = 1.5 }, "min_detection_confidence"},
		{"model complexity", func(c *Config) { c.Detector.ModelComplexity = 3 }, "model_complexity"},
		{"zero threshold", func(c *Config) { c.Posture.WristAboveElbowAfter = 0 }, "wrist_above_elbow_after"},
		{"negative margin", func(c *Config) { c.Posture.MarginPixels = -1 }, "margin_pixels"},
		{"jpeg quality", func(c *Config) { c.Server.JPEGQuality = 0 }, "jpeg_quality"},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }, "journal.path"},
		{"queue size", func(c *Config) { c.Alerts.QueueSize = 0 }, "queue_size"},
		{"plugins without dir", func(c *Config) { c.Plugins.Dir = "" }, "plugins.dir"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	t.Run("disabled features skip their checks", func(t *testing.T) {
		cfg := Default()
		cfg.Journal = JournalConfig{}
		cfg.Plugins = PluginsConfig{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := Default()
		cfg.Camera.FPS = 0
		cfg.Log.Format = "xml"
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "camera.fps") || !strings.Contains(err.Error(), "log.format") {
			t.Errorf("error = %v, want both problems", err)
		}
	})
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "wrist_too_high_after: 5s") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != Default() {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", back, Default())
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	if got := DefaultConfigPath(); got != "/tmp/xdg-config/wristguard/config.yaml" {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
	if got := DefaultDBPath(); got != "/tmp/xdg-data/wristguard/wristguard.db" {
		t.Errorf("DefaultDBPath() = %q", got)
	}
	if got := DefaultPluginDir(); got != "/tmp/xdg-config/wristguard/plugins" {
		t.Errorf("DefaultPluginDir() = %q", got)
	}
}
