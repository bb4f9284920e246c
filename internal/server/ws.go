package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusBroadcaster pushes a status snapshot to every connected websocket
// client on a fixed interval.
type StatusBroadcaster struct {
	snapshot func() any
	interval time.Duration
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStatusBroadcaster starts broadcasting snapshot every interval. The
// snapshot is only taken while at least one client is connected.
func NewStatusBroadcaster[T any](snapshot func() T, interval time.Duration) *StatusBroadcaster {
	b := &StatusBroadcaster{
		snapshot: func() any { return snapshot() },
		interval: interval,
		clients:  make(map[*websocket.Conn]bool),
		stop:     make(chan struct{}),
	}
	go b.broadcast()
	return b
}

// ServeHTTP handles WebSocket upgrade requests.
func (b *StatusBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("server: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
	}()

	// Reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close stops broadcasting and disconnects every client.
func (b *StatusBroadcaster) Close() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.mu.Lock()
		for conn := range b.clients {
			conn.Close()
		}
		b.mu.Unlock()
	})
}

func (b *StatusBroadcaster) broadcast() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}

		if b.Clients() == 0 {
			continue
		}

		msg, err := json.Marshal(b.snapshot())
		if err != nil {
			slog.Error("server: failed to encode status", "error", err)
			continue
		}

		var failed []*websocket.Conn
		b.mu.RLock()
		for conn := range b.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = append(failed, conn)
			}
		}
		b.mu.RUnlock()

		for _, conn := range failed {
			conn.Close()
		}
	}
}
