// Package app runs the posture pipeline: capture, detection, evaluation,
// alert tracking and streaming of the annotated video.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/ayusman/wristguard/internal/capture"
	"github.com/ayusman/wristguard/internal/detector"
	"github.com/ayusman/wristguard/internal/metrics"
	"github.com/ayusman/wristguard/internal/posture"
	"github.com/ayusman/wristguard/internal/render"
	"github.com/ayusman/wristguard/internal/stream"
)

// Camera reacquisition backoff.
const (
	DefaultRetryBackoff = 100 * time.Millisecond
	DefaultMaxBackoff   = 5 * time.Second
)

// Journal closes episodes left open by a previous run.
type Journal interface {
	CloseOpen(ctx context.Context, at time.Time) (int, error)
}

// Config holds the pipeline's collaborators. Only Camera and Detector are
// needed to evaluate frames; everything else is optional.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Monitor    *posture.Monitor
	Hub        *stream.Hub
	Dispatcher *alerting.Dispatcher
	Journal    Journal
	Metrics    *metrics.Metrics

	JPEGQuality  int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// App is the main application that turns camera frames into posture alerts.
type App struct {
	config  Config
	tracker *alerting.Tracker

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// New creates a new App with the given configuration. A nil Camera opens the
// default webcam; a nil Detector uses MediaPipe when available and otherwise
// a mock that detects nothing.
func New(config Config) *App {
	if config.Camera == nil {
		config.Camera = capture.NewCamera(capture.DefaultConfig())
	}
	if config.Detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			config.Detector = mp
		} else {
			slog.Warn("app: MediaPipe not available, using mock detector", "error", err)
			config.Detector = detector.NewMockDetector()
		}
	}
	if config.Monitor == nil {
		config.Monitor = posture.NewMonitor(posture.DefaultConfig())
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = render.DefaultQuality
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	if config.MaxBackoff < config.RetryBackoff {
		config.MaxBackoff = max(DefaultMaxBackoff, config.RetryBackoff)
	}

	if config.Hub != nil && config.Metrics != nil {
		viewers := config.Metrics.StreamViewers
		config.Hub.OnSubscribersChanged(func(n int) { viewers.Set(float64(n)) })
	}

	return &App{
		config:  config,
		tracker: alerting.NewTracker(),
	}
}

// Monitor returns the posture monitor, for calibration and status.
func (a *App) Monitor() *posture.Monitor {
	return a.config.Monitor
}

// Hub returns the stream hub, or nil.
func (a *App) Hub() *stream.Hub {
	return a.config.Hub
}

// Running reports whether the pipeline loop is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// Start opens the camera and begins the pipeline. Failing to open the camera
// is returned; later read failures are recovered inside the loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.config.Journal != nil {
		n, err := a.config.Journal.CloseOpen(context.Background(), time.Now())
		if err != nil {
			slog.Warn("app: failed to close stale episodes", "error", err)
		} else if n > 0 {
			slog.Info("app: closed episodes left open by a previous run", "count", n)
		}
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	slog.Info("app: pipeline started", "fps", a.config.Camera.FPS())
	return nil
}

// Stop halts the pipeline, clears open alerts and releases the camera and
// detector. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.publish(a.tracker.Flush(time.Now()))
	if m := a.config.Metrics; m != nil {
		for _, alert := range posture.Alerts {
			m.SetAlert(string(alert), false)
		}
	}

	if err := a.config.Camera.Close(); err != nil {
		slog.Warn("app: error closing camera", "error", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		slog.Warn("app: error closing detector", "error", err)
	}

	slog.Info("app: pipeline stopped")
}

// publish hands events to the dispatcher and counts raised episodes.
func (a *App) publish(events []alerting.Event) {
	for _, ev := range events {
		slog.Debug("app: alert event", "alert", ev.Alert, "kind", ev.Kind, "id", ev.ID)
		if ev.Kind == alerting.Raised && a.config.Metrics != nil {
			a.config.Metrics.EpisodesRaised.WithLabelValues(string(ev.Alert)).Inc()
		}
		if a.config.Dispatcher != nil {
			a.config.Dispatcher.Dispatch(ev)
		}
	}
}
