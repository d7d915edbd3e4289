package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket besides service.EventDeskUpdated.
const (
	EventConnected = "connected"
	EventResult    = "action_result"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	Status int    `json:"status,omitempty"`
	Data   any    `json:"data"`
}

// ClientMessage is the envelope for actions sent from a viewer.
type ClientMessage struct {
	Action string `json:"action"` // click, choose, hold, move, support, convoy, cancel, process, reset
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Region string `json:"region,omitempty"`
}

// WSConn wraps a WebSocket connection with its viewer id.
type WSConn struct {
	conn     *websocket.Conn
	viewerID string
	send     chan []byte
}

// Hub tracks connected viewers. Every viewer watches the same desk.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[*WSConn]bool)}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and closes its send queue.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	close(c.send)
}

// Broadcast sends an event to every connected viewer.
func (h *Hub) Broadcast(event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("viewerId", c.viewerID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// SendToViewer sends an event to one viewer's connections.
func (h *Hub) SendToViewer(viewerID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("viewerId", viewerID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		if c.viewerID == viewerID {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
