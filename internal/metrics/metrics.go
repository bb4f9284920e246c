// Package metrics exposes Prometheus collectors for the posture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wristguard"

// Metrics holds every collector, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed     prometheus.Counter
	FrameReadFailures   prometheus.Counter
	CameraReacquired    prometheus.Counter
	DetectionErrors     prometheus.Counter
	Detections          *prometheus.CounterVec
	AlertActive         *prometheus.GaugeVec
	EpisodesRaised      *prometheus.CounterVec
	EventsDropped       prometheus.Counter
	SinkErrors          *prometheus.CounterVec
	FrameDuration       prometheus.Histogram
	StreamViewers       prometheus.Gauge
	Calibrated          prometheus.Gauge
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Total number of frames evaluated",
		}),
		FrameReadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_read_failures_total",
			Help:      "Total number of failed camera reads",
		}),
		CameraReacquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_reacquisitions_total",
			Help:      "Total number of times the camera was reopened",
		}),
		DetectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_errors_total",
			Help:      "Total number of landmark detection failures",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Frames in which a body part was detected",
		}, []string{"kind"}),
		AlertActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_active",
			Help:      "1 while the alert is active",
		}, []string{"alert"}),
		EpisodesRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_episodes_total",
			Help:      "Total number of alert episodes raised",
		}, []string{"alert"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_events_dropped_total",
			Help:      "Alert events dropped because the dispatch queue was full",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_sink_errors_total",
			Help:      "Alert deliveries that failed, by sink",
		}, []string{"sink"}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_processing_seconds",
			Help:      "Time from frame read to publish",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
		StreamViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_viewers",
			Help:      "Number of connected video stream viewers",
		}),
		Calibrated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calibrated",
			Help:      "1 once the keyboard line has been calibrated",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests, excluding streams",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FramesProcessed,
		m.FrameReadFailures,
		m.CameraReacquired,
		m.DetectionErrors,
		m.Detections,
		m.AlertActive,
		m.EpisodesRaised,
		m.EventsDropped,
		m.SinkErrors,
		m.FrameDuration,
		m.StreamViewers,
		m.Calibrated,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetAlert records whether an alert is active.
func (m *Metrics) SetAlert(alert string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.AlertActive.WithLabelValues(alert).Set(v)
}

// ObserveFrame records one processed frame that took d.
func (m *Metrics) ObserveFrame(d time.Duration) {
	m.FramesProcessed.Inc()
	m.FrameDuration.Observe(d.Seconds())
}
