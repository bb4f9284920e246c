// Package config loads wristguard settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete wristguard configuration. Durations are written as
// Go duration strings ("5s", "250ms").
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Posture  PostureConfig  `yaml:"posture"`
	Server   ServerConfig   `yaml:"server"`
	Journal  JournalConfig  `yaml:"journal"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Redis    RedisConfig    `yaml:"redis"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Tray     TrayConfig     `yaml:"tray"`
	Log      LogConfig      `yaml:"log"`
}

// CameraConfig selects the video source.
type CameraConfig struct {
	Source string `yaml:"source"` // device index or file/URL
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// DetectorConfig configures the MediaPipe sidecar.
type DetectorConfig struct {
	Python                 string  `yaml:"python"`
	Script                 string  `yaml:"script"`
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
	ModelComplexity        int     `yaml:"model_complexity"`
}

// PostureConfig holds the alert thresholds.
type PostureConfig struct {
	WristTooHighAfter    time.Duration `yaml:"wrist_too_high_after"`
	WristAboveElbowAfter time.Duration `yaml:"wrist_above_elbow_after"`
	MarginPixels         int           `yaml:"margin_pixels"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// StaticDir, when set, serves the viewer page from disk instead of the embedded copy.
	StaticDir      string        `yaml:"static_dir"`
	JPEGQuality    int           `yaml:"jpeg_quality"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

// JournalConfig configures the sqlite alert journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AlertsConfig configures event dispatch.
type AlertsConfig struct {
	QueueSize   int           `yaml:"queue_size"`
	SinkTimeout time.Duration `yaml:"sink_timeout"`
}

// RedisConfig configures the optional Redis publisher. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// PluginsConfig configures external alert plugins.
type PluginsConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// TrayConfig toggles the system tray indicator.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Source: "0",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.7,
			ModelComplexity:        2,
		},
		Posture: PostureConfig{
			WristTooHighAfter:    5 * time.Second,
			WristAboveElbowAfter: 2 * time.Second,
			MarginPixels:         20,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:5000",
			JPEGQuality:    80,
			StatusInterval: 200 * time.Millisecond,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    DefaultDBPath(),
		},
		Alerts: AlertsConfig{
			QueueSize:   64,
			SinkTimeout: 2 * time.Second,
		},
		Redis: RedisConfig{
			Channel: "wristguard:alerts",
		},
		Plugins: PluginsConfig{
			Enabled: true,
			Dir:     DefaultPluginDir(),
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config from path on top of the defaults. A missing file
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Camera.Source != "", "camera.source is required")
	check(c.Camera.Width > 0 && c.Camera.Height > 0, "camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	check(c.Camera.FPS > 0, "camera.fps must be positive, got %d", c.Camera.FPS)

	check(c.Detector.MaxHands >= 1, "detector.max_hands must be at least 1, got %d", c.Detector.MaxHands)
	check(inUnit(c.Detector.MinDetectionConfidence), "detector.min_detection_confidence must be within [0,1], got %v", c.Detector.MinDetectionConfidence)
	check(inUnit(c.Detector.MinTrackingConfidence), "detector.min_tracking_confidence must be within [0,1], got %v", c.Detector.MinTrackingConfidence)
	check(c.Detector.ModelComplexity >= 0 && c.Detector.ModelComplexity <= 2, "detector.model_complexity must be 0, 1 or 2, got %d", c.Detector.ModelComplexity)

	check(c.Posture.WristTooHighAfter > 0, "posture.wrist_too_high_after must be positive")
	check(c.Posture.WristAboveElbowAfter > 0, "posture.wrist_above_elbow_after must be positive")
	check(c.Posture.MarginPixels >= 0, "posture.margin_pixels must not be negative, got %d", c.Posture.MarginPixels)

	check(c.Server.Addr != "", "server.addr is required")
	check(c.Server.JPEGQuality >= 1 && c.Server.JPEGQuality <= 100, "server.jpeg_quality must be within [1,100], got %d", c.Server.JPEGQuality)
	check(c.Server.StatusInterval > 0, "server.status_interval must be positive")

	check(!c.Journal.Enabled || c.Journal.Path != "", "journal.path is required when the journal is enabled")
	check(c.Alerts.QueueSize > 0, "alerts.queue_size must be positive, got %d", c.Alerts.QueueSize)
	check(c.Alerts.SinkTimeout > 0, "alerts.sink_timeout must be positive")
	check(c.Redis.DB >= 0, "redis.db must not be negative")
	check(!c.Plugins.Enabled || c.Plugins.Dir != "", "plugins.dir is required when plugins are enabled")
	check(!c.Plugins.Enabled || c.Plugins.Timeout > 0, "plugins.timeout must be positive")

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
