// Package stream fans encoded frames out to browser viewers.
//
// Each subscriber owns a single-slot mailbox. Publishing overwrites an
// unconsumed frame instead of queueing behind it, so a slow viewer only ever
// sees the most recent frame and never holds up the producer or other viewers.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Next once the hub or subscription is closed.
var ErrClosed = errors.New("stream closed")

// Frame is one encoded JPEG image.
type Frame struct {
	Seq  uint64
	Data []byte
	At   time.Time
}

// Stats is a snapshot of hub activity.
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// Hub distributes frames from a single producer to any number of subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	latest *Frame
	closed bool

	seq       atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64

	// onSubscribers is called with the new subscriber count after every change.
	onSubscribers func(int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// OnSubscribersChanged registers fn to be called with the subscriber count
// whenever a viewer joins or leaves.
func (h *Hub) OnSubscribersChanged(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSubscribers = fn
}

// Publish hands data to every subscriber, replacing any frame they have not
// read yet. It never blocks. Publishing to a closed hub is a no-op.
func (h *Hub) Publish(data []byte, at time.Time) {
	frame := &Frame{Seq: h.seq.Add(1), Data: data, At: at}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = frame
	h.published.Add(1)

	for sub := range h.subs {
		if sub.offer(frame) {
			h.dropped.Add(1)
		}
	}
}

// Latest returns the most recently published frame, if any.
func (h *Hub) Latest() (*Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latest != nil
}

// Subscribe registers a viewer. The mailbox is primed with the latest frame so
// a new viewer has something to show immediately. Callers must Close the
// subscription when done.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:  h,
		mail: make(chan *Frame, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.closeOnce.Do(func() { close(sub.done) })
		return sub
	}
	if h.latest != nil {
		sub.mail <- h.latest
	}
	h.subs[sub] = struct{}{}
	n, fn := len(h.subs), h.onSubscribers
	h.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return sub
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	return Stats{
		Subscribers: n,
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Close ends every subscription and rejects further publishing.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	fn := h.onSubscribers
	h.mu.Unlock()

	for sub := range subs {
		sub.closeOnce.Do(func() { close(sub.done) })
	}
	if fn != nil {
		fn(0)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub)
	n, fn := len(h.subs), h.onSubscribers
	h.mu.Unlock()

	if fn != nil {
		fn(n)
	}
}

// Subscription is one viewer's mailbox.
type Subscription struct {
	hub       *Hub
	mail      chan *Frame
	done      chan struct{}
	closeOnce sync.Once
}

// offer places frame in the mailbox, evicting an unread frame.
// It reports whether a frame was dropped. Called with the hub lock held,
// which makes the hub the only sender.
func (s *Subscription) offer(frame *Frame) bool {
	select {
	case s.mail <- frame:
		return false
	default:
	}

	dropped := false
	select {
	case <-s.mail:
		dropped = true
	default:
		// The viewer took it in the meantime.
	}
	s.mail <- frame
	return dropped
}

// Next blocks until a frame is available, the subscription is closed, or
// ctx is done.
func (s *Subscription) Next(ctx context.Context) (*Frame, error) {
	// Prefer closure over a pending frame.
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}

	select {
	case frame := <-s.mail:
		return frame, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.hub.remove(s)
}
