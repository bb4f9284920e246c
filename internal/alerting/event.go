// Package alerting turns changes in the active alert set into episode events
// and delivers them to sinks off the frame loop.
package alerting

import (
	"sync"
	"time"

	"github.com/ayusman/wristguard/internal/posture"
	"github.com/google/uuid"
)

// Kind says whether an event opens or closes an episode.
type Kind string

const (
	Raised  Kind = "raised"
	Cleared Kind = "cleared"
)

// Event marks an alert entering or leaving the active set.
type Event struct {
	// ID identifies the episode; the raised and cleared events share it.
	ID    string        `json:"id"`
	Alert posture.Alert `json:"alert"`
	Kind  Kind          `json:"kind"`
	At    time.Time     `json:"at"`
	// Since is when the underlying condition started holding.
	Since time.Time `json:"since"`
}

type episode struct {
	id    string
	since time.Time
}

// Tracker diffs consecutive results and emits events for every alert that
// was raised or cleared in between.
type Tracker struct {
	mu     sync.Mutex
	active posture.AlertSet
	open   map[posture.Alert]episode
	newID  func() string
}

// NewTracker creates a Tracker with nothing active.
func NewTracker() *Tracker {
	return &Tracker{
		open:  make(map[posture.Alert]episode),
		newID: uuid.NewString,
	}
}

// Observe compares res with the previous result. Cleared events come before
// raised events.
func (t *Tracker) Observe(res posture.Result, now time.Time) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	raised, cleared := res.Alerts.Diff(t.active)
	t.active = res.Alerts
	if raised.Empty() && cleared.Empty() {
		return nil
	}

	events := make([]Event, 0, raised.Len()+cleared.Len())
	for _, a := range cleared.List() {
		ep := t.open[a]
		delete(t.open, a)
		events = append(events, Event{ID: ep.id, Alert: a, Kind: Cleared, At: now, Since: ep.since})
	}
	for _, a := range raised.List() {
		since, ok := res.Since(a)
		if !ok {
			since = now
		}
		ep := episode{id: t.newID(), since: since}
		t.open[a] = ep
		events = append(events, Event{ID: ep.id, Alert: a, Kind: Raised, At: now, Since: since})
	}
	return events
}

// Active returns the alerts active as of the last Observe.
func (t *Tracker) Active() posture.AlertSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Flush clears every open episode, for use at shutdown.
func (t *Tracker) Flush(now time.Time) []Event {
	return t.Observe(posture.Result{}, now)
}
