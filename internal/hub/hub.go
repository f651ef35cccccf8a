// Package hub fans physical-button events out to connected UI clients over
// WebSocket. The browser shell subscribes at /ws; the forwarder daemon posts
// presses to /api/button, and every subscriber sees the same event.
package hub

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one button press relayed to the UI.
type Event struct {
	Type string `json:"type"`
}

// Hub tracks connected WebSocket clients and broadcasts events to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *log.Logger
}

// New creates an empty hub.
func New(logger *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Register adds a client connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends the event to every connected client. Clients that fail the
// write are dropped; a kiosk page that navigated away should not wedge the
// event path for the page that replaced it.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dead []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Printf("dropping websocket client after write error: %v", err)
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		conn.Close()
		delete(h.clients, conn)
	}
}
