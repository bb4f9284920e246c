package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()

	// Vec collectors only appear once a label set is used.
	m.Detections.WithLabelValues("pose")
	m.SetAlert("WRIST_TOO_HIGH", false)

	names := []string{
		"wristguard_frames_processed_total",
		"wristguard_detections_total",
		"wristguard_alert_active",
		"wristguard_stream_viewers",
	}
	count, err := testutil.GatherAndCount(m.Registry(), names...)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != len(names) {
		t.Errorf("GatherAndCount() = %d, want %d", count, len(names))
	}
}

func TestSetAlert(t *testing.T) {
	m := New()

	m.SetAlert("WRIST_ABOVE_ELBOW", true)
	if got := testutil.ToFloat64(m.AlertActive.WithLabelValues("WRIST_ABOVE_ELBOW")); got != 1 {
		t.Errorf("alert_active = %v, want 1", got)
	}

	m.SetAlert("WRIST_ABOVE_ELBOW", false)
	if got := testutil.ToFloat64(m.AlertActive.WithLabelValues("WRIST_ABOVE_ELBOW")); got != 0 {
		t.Errorf("alert_active = %v, want 0", got)
	}
}

func TestObserveFrame(t *testing.T) {
	m := New()

	m.ObserveFrame(20 * time.Millisecond)
	m.ObserveFrame(30 * time.Millisecond)

	if got := testutil.ToFloat64(m.FramesProcessed); got != 2 {
		t.Errorf("frames_processed_total = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.FrameDuration); got != 1 {
		t.Errorf("CollectAndCount(frame duration) = %d, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.EventsDropped.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "wristguard_alert_events_dropped_total 3") {
		t.Errorf("exposition missing dropped counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("exposition missing runtime collector")
	}
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.FramesProcessed.Inc()
	if got := testutil.ToFloat64(b.FramesProcessed); got != 0 {
		t.Errorf("second instance saw %v frames", got)
	}
}
