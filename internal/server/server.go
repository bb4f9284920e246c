// Package server provides the HTTP server for the wristguard posture monitor.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/wristguard/internal/metrics"
	"github.com/ayusman/wristguard/internal/server/api"
	"github.com/ayusman/wristguard/internal/stream"
)

//go:embed web
var webFS embed.FS

// DefaultStatusInterval is how often websocket clients receive the status.
const DefaultStatusInterval = 200 * time.Millisecond

// Config holds the server configuration. Routes whose dependency is nil are
// not registered.
type Config struct {
	// StaticDir, when set, replaces the embedded viewer page.
	StaticDir      string
	Monitor        api.Monitor
	Hub            *stream.Hub
	Episodes       api.EpisodeLister
	Metrics        *metrics.Metrics
	StatusInterval time.Duration
}

// Server represents the HTTP server for the wristguard application.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
	status *StatusBroadcaster

	// baseCtx is the parent of every request context; cancelled on Shutdown
	// so long-lived streams end.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	http       *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StatusInterval <= 0 {
		config.StatusInterval = DefaultStatusInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     config,
		router:     mux.NewRouter(),
		start:      time.Now(),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	if s.config.Metrics != nil {
		r.Use(instrument(s.config.Metrics))
		r.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if s.config.Monitor != nil {
		calibration := api.NewCalibrationHandler(s.config.Monitor)
		r.HandleFunc("/calibrate/{y:-?[0-9]+}", calibration.Calibrate).Methods(http.MethodGet)
		r.HandleFunc("/api/calibration", calibration.Get).Methods(http.MethodGet)
		r.HandleFunc("/api/calibration", calibration.Put).Methods(http.MethodPut)

		status := api.NewStatusHandler(s.config.Monitor, s.config.Hub)
		r.Handle("/api/status", status).Methods(http.MethodGet)

		s.status = NewStatusBroadcaster(status.Snapshot, s.config.StatusInterval)
		r.Handle("/api/ws", s.status).Methods(http.MethodGet)
	}

	if s.config.Episodes != nil {
		r.Handle("/api/episodes", api.NewEpisodesHandler(s.config.Episodes)).Methods(http.MethodGet)
	}

	if s.config.Hub != nil {
		feed := NewStreamHandler(s.config.Hub)
		r.Handle("/video_feed", feed).Methods(http.MethodGet)
		r.Handle("/api/stream", feed).Methods(http.MethodGet)
	}

	r.PathPrefix("/").Handler(s.staticHandler()).Methods(http.MethodGet, http.MethodHead)
}

// staticHandler serves the viewer page from StaticDir or the embedded copy.
func (s *Server) staticHandler() http.Handler {
	if s.config.StaticDir != "" {
		return http.FileServer(http.Dir(s.config.StaticDir))
	}
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	slog.Info("server: listening", "addr", l.Addr().String())

	err := s.http.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown ends open streams and websocket pushes, then waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	if s.status != nil {
		s.status.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
