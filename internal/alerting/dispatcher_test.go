package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/wristguard/internal/posture"
)

// recordingSink collects events, optionally blocking until released.
type recordingSink struct {
	name    string
	mu      sync.Mutex
	events  []Event
	err     error
	release chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(ctx context.Context, ev Event) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func testEvent(id string) Event {
	return Event{ID: id, Alert: posture.WristTooHigh, Kind: Raised, At: time.Now()}
}

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher(DispatcherConfig{}, a, b)

	for _, id := range []string{"1", "2", "3"} {
		if !d.Dispatch(testEvent(id)) {
			t.Fatalf("Dispatch(%s) dropped", id)
		}
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, sink := range []*recordingSink{a, b} {
		evs := sink.Events()
		if len(evs) != 3 {
			t.Fatalf("sink %s got %d events, want 3", sink.name, len(evs))
		}
		for i, want := range []string{"1", "2", "3"} {
			if evs[i].ID != want {
				t.Errorf("sink %s event %d = %s, want %s", sink.name, i, evs[i].ID, want)
			}
		}
	}
	if d.Delivered() != 3 {
		t.Errorf("Delivered() = %d, want 3", d.Delivered())
	}
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	blocked := &recordingSink{name: "slow", release: make(chan struct{})}

	var mu sync.Mutex
	var drops []Event
	d := NewDispatcher(DispatcherConfig{
		QueueSize:   2,
		SinkTimeout: 5 * time.Second,
		OnDrop: func(ev Event) {
			mu.Lock()
			drops = append(drops, ev)
			mu.Unlock()
		},
	}, blocked)

	// The first event is taken by the worker and blocks in the sink,
	// the next two fill the queue.
	d.Dispatch(testEvent("taken"))
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Dispatch(testEvent("q1"))
	d.Dispatch(testEvent("q2"))

	start := time.Now()
	if d.Dispatch(testEvent("overflow")) {
		t.Error("Dispatch() on a full queue should report a drop")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Dispatch() blocked on a full queue")
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", d.Dropped())
	}

	close(blocked.release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(drops) != 1 || drops[0].ID != "overflow" {
		t.Errorf("drops = %+v", drops)
	}
	if got := len(blocked.Events()); got != 3 {
		t.Errorf("delivered %d events, want 3", got)
	}
}

func TestDispatcher_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	ok := &recordingSink{name: "ok"}

	var failures []string
	d := NewDispatcher(DispatcherConfig{
		OnSinkError: func(sink string, err error) { failures = append(failures, sink) },
	}, failing, ok)

	d.Dispatch(testEvent("1"))
	d.Dispatch(testEvent("2"))
	d.Close(context.Background())

	if len(ok.Events()) != 2 {
		t.Errorf("ok sink got %d events, want 2", len(ok.Events()))
	}
	if len(failures) != 2 || failures[0] != "failing" {
		t.Errorf("failures = %v", failures)
	}
}

func TestDispatcher_SinkTimeout(t *testing.T) {
	stuck := &recordingSink{name: "stuck", release: make(chan struct{})}

	var mu sync.Mutex
	var errs []error
	d := NewDispatcher(DispatcherConfig{
		SinkTimeout: 20 * time.Millisecond,
		OnSinkError: func(_ string, err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}, stuck)

	d.Dispatch(testEvent("1"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], context.DeadlineExceeded) {
		t.Errorf("errs = %v, want one deadline exceeded", errs)
	}
}

func TestDispatcher_Closed(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if d.Dispatch(testEvent("late")) {
		t.Error("Dispatch() after Close should fail")
	}
	if err := d.Close(context.Background()); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("second Close() error = %v, want ErrDispatcherClosed", err)
	}
}
