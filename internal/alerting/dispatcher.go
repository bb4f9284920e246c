package alerting

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDispatcherClosed is returned when dispatching after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Defaults for NewDispatcher.
const (
	DefaultQueueSize   = 64
	DefaultSinkTimeout = 2 * time.Second
)

// Sink receives alert events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, ev Event) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Handle(ctx context.Context, ev Event) error { return s.Fn(ctx, ev) }

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	QueueSize   int
	SinkTimeout time.Duration
	// OnDrop is called for every event dropped because the queue was full.
	OnDrop func(Event)
	// OnSinkError is called when a sink fails or times out.
	OnSinkError func(sink string, err error)
}

// Dispatcher delivers events to sinks from a single goroutine so that slow
// sinks never hold up the caller.
type Dispatcher struct {
	cfg   DispatcherConfig
	sinks []Sink
	queue chan Event

	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
	done      chan struct{}
}

// NewDispatcher starts a dispatcher delivering to sinks.
func NewDispatcher(cfg DispatcherConfig, sinks ...Sink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}

	d := &Dispatcher{
		cfg:   cfg,
		sinks: sinks,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues ev without blocking. It returns false if the event was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- ev:
		return true
	default:
		d.dropped.Add(1)
		slog.Warn("alerting: queue full, dropping event", "alert", ev.Alert, "kind", ev.Kind, "id", ev.ID)
		if d.cfg.OnDrop != nil {
			d.cfg.OnDrop(ev)
		}
		return false
	}
}

// Dropped returns how many events were dropped on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Delivered returns how many events have been handed to every sink.
func (d *Dispatcher) Delivered() uint64 {
	return d.delivered.Load()
}

// Close stops accepting events, delivers what is queued, and waits for the
// worker to exit or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.queue {
		for _, sink := range d.sinks {
			d.deliver(sink, ev)
		}
		d.delivered.Add(1)
	}
}

func (d *Dispatcher) deliver(sink Sink, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SinkTimeout)
	defer cancel()

	if err := sink.Handle(ctx, ev); err != nil {
		slog.Error("alerting: sink failed", "sink", sink.Name(), "alert", ev.Alert, "kind", ev.Kind, "error", err)
		if d.cfg.OnSinkError != nil {
			d.cfg.OnSinkError(sink.Name(), err)
		}
	}
}
