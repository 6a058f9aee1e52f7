// Package trace is the JSON event trace collaborator: it subscribes to
// every signaling and voice topic, appends one JSON line per event to a
// rotating (xz-compressed on rotation) file, and republishes each event to
// connected websocket observers.
//
// Grounded on DMRHub's internal/http/websocket package for the
// upgrade/broadcast shape, simplified since this domain has no per-user
// session scoping to replicate — every observer sees the same trace.
package trace

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out trace lines to every connected websocket observer.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub builds an empty observer set.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the connection and registers it as an observer until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("trace: websocket upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Observers are read-only; drain and discard any client frames so
	// control frames are handled and a disconnect removes the observer.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends line to every currently connected observer, best-effort:
// a write failure drops that observer rather than blocking the others.
func (h *Hub) Broadcast(line []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			go h.remove(conn)
		}
	}
}
