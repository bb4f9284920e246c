package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/wristguard/internal/store"
)

// LogSink writes every event to the default logger.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Handle(_ context.Context, ev Event) error {
	switch ev.Kind {
	case Raised:
		slog.Warn("alert: raised", "alert", ev.Alert, "since", ev.Since, "id", ev.ID)
	case Cleared:
		slog.Info("alert: cleared", "alert", ev.Alert, "duration", ev.At.Sub(ev.Since), "id", ev.ID)
	}
	return nil
}

// EpisodeStore is the part of the journal the sink writes to.
type EpisodeStore interface {
	Create(ctx context.Context, e *store.Episode) error
	Clear(ctx context.Context, id string, at time.Time) error
}

// JournalSink records episodes in the journal.
type JournalSink struct {
	episodes EpisodeStore
}

// NewJournalSink creates a JournalSink writing to episodes.
func NewJournalSink(episodes EpisodeStore) *JournalSink {
	return &JournalSink{episodes: episodes}
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case Raised:
		return s.episodes.Create(ctx, &store.Episode{
			ID:       ev.ID,
			Alert:    string(ev.Alert),
			Since:    ev.Since,
			RaisedAt: ev.At,
		})
	case Cleared:
		return s.episodes.Clear(ctx, ev.ID, ev.At)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
