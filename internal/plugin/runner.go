package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/ayusman/wristguard/internal/posture"
)

// Runner is an alerting.Sink that executes every plugin subscribed to an event.
type Runner struct {
	manager  *Manager
	executor *Executor
}

// NewRunner creates a Runner over the plugins known to manager.
func NewRunner(manager *Manager, executor *Executor) *Runner {
	return &Runner{manager: manager, executor: executor}
}

func (r *Runner) Name() string { return "plugins" }

// Handle runs the matching plugins in name order. A failing plugin does not
// stop the others; all failures are returned joined.
func (r *Runner) Handle(ctx context.Context, ev alerting.Event) error {
	var errs []error
	for _, p := range r.manager.Matching(string(ev.Kind), string(ev.Alert)) {
		req := NewRequest(ev, p.Manifest.Config)
		resp, err := r.executor.Execute(ctx, p, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error))
			continue
		}
		slog.Debug("plugin: executed", "plugin", p.Manifest.Name, "alert", ev.Alert, "event", ev.Kind)
	}
	return errors.Join(errs...)
}

// NewRequest builds the plugin request for ev.
func NewRequest(ev alerting.Event, config json.RawMessage) *Request {
	req := &Request{
		Event:     string(ev.Kind),
		Alert:     string(ev.Alert),
		EpisodeID: ev.ID,
		At:        ev.At,
		Since:     ev.Since,
		Message:   Message(ev),
		Config:    config,
	}
	if ev.Kind == alerting.Cleared {
		req.DurationMS = ev.At.Sub(ev.Since).Milliseconds()
	}
	return req
}

// Message returns a short human readable line for ev.
func Message(ev alerting.Event) string {
	var text string
	switch ev.Alert {
	case posture.WristAboveElbow:
		text = "Wrist above elbow"
	case posture.WristTooHigh:
		text = "Wrist too high"
	default:
		text = string(ev.Alert)
	}
	if ev.Kind == alerting.Cleared {
		return fmt.Sprintf("%s: resolved after %s", text, ev.At.Sub(ev.Since).Round(100*time.Millisecond))
	}
	return text + ". Lower your hands to the keyboard."
}
