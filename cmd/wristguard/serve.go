package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/ayusman/wristguard/internal/app"
	"github.com/ayusman/wristguard/internal/capture"
	"github.com/ayusman/wristguard/internal/config"
	"github.com/ayusman/wristguard/internal/detector"
	"github.com/ayusman/wristguard/internal/logging"
	"github.com/ayusman/wristguard/internal/metrics"
	"github.com/ayusman/wristguard/internal/notify"
	"github.com/ayusman/wristguard/internal/plugin"
	"github.com/ayusman/wristguard/internal/posture"
	"github.com/ayusman/wristguard/internal/server"
	"github.com/ayusman/wristguard/internal/server/api"
	"github.com/ayusman/wristguard/internal/store"
	"github.com/ayusman/wristguard/internal/stream"
	"github.com/ayusman/wristguard/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, stop, cfg)
}

// closer collects cleanup steps and runs them in reverse order.
type closer []func()

func (c *closer) add(fn func()) { *c = append(*c, fn) }

func (c closer) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg config.Config) error {
	var cleanup closer
	defer cleanup.run()

	m := metrics.New()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		ModelComplexity: cfg.Detector.ModelComplexity,
		Python:          cfg.Detector.Python,
		Script:          cfg.Detector.Script,
	})
	if err != nil {
		return fmt.Errorf("landmark detector unavailable: %w", err)
	}

	sinks := []alerting.Sink{alerting.LogSink{}}

	var episodes api.EpisodeLister
	var journal app.Journal
	if cfg.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.New(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		cleanup.add(func() { st.Close() })
		episodes, journal = st.Episodes(), st.Episodes()
		sinks = append(sinks, alerting.NewJournalSink(st.Episodes()))
		slog.Info("journal: recording episodes", "path", cfg.Journal.Path)
	}

	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		pub, err := notify.NewPublisher(pingCtx, notify.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		cancel()
		if err != nil {
			return err
		}
		cleanup.add(func() { pub.Close() })
		sinks = append(sinks, pub)
		slog.Info("notify: publishing alerts to redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	if cfg.Plugins.Enabled {
		mgr := plugin.NewManager(cfg.Plugins.Dir)
		if err := mgr.Discover(); err != nil {
			slog.Warn("plugin: discovery failed", "dir", cfg.Plugins.Dir, "error", err)
		}
		if n := len(mgr.List()); n > 0 {
			sinks = append(sinks, plugin.NewRunner(mgr, plugin.NewExecutor(cfg.Plugins.Timeout)))
			slog.Info("plugin: loaded", "count", n, "dir", cfg.Plugins.Dir)
		}
	}

	var tr *tray.Tray
	if cfg.Tray.Enabled {
		tr = tray.New()
		sinks = append(sinks, tr)
	}

	dispatcher := alerting.NewDispatcher(alerting.DispatcherConfig{
		QueueSize:   cfg.Alerts.QueueSize,
		SinkTimeout: cfg.Alerts.SinkTimeout,
		OnDrop:      func(alerting.Event) { m.EventsDropped.Inc() },
		OnSinkError: func(sink string, err error) {
			m.SinkErrors.WithLabelValues(sink).Inc()
			slog.Warn("alerting: sink failed", "sink", sink, "error", err)
		},
	}, sinks...)
	cleanup.add(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			slog.Warn("alerting: dispatcher did not drain", "error", err)
		}
	})

	monitor := posture.NewMonitor(posture.Config{
		WristTooHighAfter:    cfg.Posture.WristTooHighAfter,
		WristAboveElbowAfter: cfg.Posture.WristAboveElbowAfter,
		MarginPixels:         cfg.Posture.MarginPixels,
	})
	hub := stream.NewHub()

	pipeline := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			Source: cfg.Camera.Source,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		}),
		Detector:    det,
		Monitor:     monitor,
		Hub:         hub,
		Dispatcher:  dispatcher,
		Journal:     journal,
		Metrics:     m,
		JPEGQuality: cfg.Server.JPEGQuality,
	})
	if err := pipeline.Start(); err != nil {
		det.Close()
		return err
	}
	cleanup.add(pipeline.Stop)

	srv := server.New(server.Config{
		StaticDir:      cfg.Server.StaticDir,
		Monitor:        monitor,
		Hub:            hub,
		Episodes:       episodes,
		Metrics:        m,
		StatusInterval: cfg.Server.StatusInterval,
	})
	cleanup.add(func() {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server: shutdown incomplete", "error", err)
		}
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
		stop()
	}()
	slog.Info("wristguard: viewer available", "url", viewerURL(cfg.Server.Addr))

	if tr != nil {
		tr.OnOpen(func() { openBrowser(viewerURL(cfg.Server.Addr)) })
		tr.OnQuit(stop)
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// Blocks on the main goroutine until Quit.
		tr.Run()
	}

	<-ctx.Done()
	slog.Info("wristguard: shutting down")

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
	}
	return nil
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var name string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name = "explorer"
	default:
		name = "xdg-open"
	}
	if err := exec.Command(name, url).Start(); err != nil {
		slog.Warn("wristguard: failed to open browser", "error", err)
	}
}
