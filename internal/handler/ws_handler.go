package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/service"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second // Must be less than pongWait
	maxMsgSize    = 4096
	sendBufSize   = 256
	actionTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware
	},
}

// WSHandler handles WebSocket viewers. Viewers send desk actions and
// receive desk_updated events for every change, whoever caused it.
type WSHandler struct {
	hub  *Hub
	desk *service.DeskService
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, desk *service.DeskService) *WSHandler {
	return &WSHandler{hub: hub, desk: desk}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		viewerID: uuid.NewString(),
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	view, err := h.desk.View(r.Context())
	if err != nil {
		log.Warn().Err(err).Str("viewerId", client.viewerID).Msg("Failed to read desk for new viewer")
	}
	welcome, _ := json.Marshal(WSEvent{
		Type: EventConnected,
		Data: map[string]any{"viewer_id": client.viewerID, "view": view},
	})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("viewerId", client.viewerID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket viewer connected")
}

// readPump reads viewer actions from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("viewerId", c.viewerID).Msg("WebSocket viewer disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("viewerId", c.viewerID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.handleMessage(c.viewerID, msg)
	}
}

// handleMessage runs one viewer action and reports its outcome to that viewer.
func (h *WSHandler) handleMessage(viewerID string, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	view, err := dispatch(ctx, h.desk, msg)
	if errors.Is(err, errUnknownAction) {
		h.hub.SendToViewer(viewerID, WSEvent{
			Type:   EventResult,
			Status: http.StatusBadRequest,
			Data:   map[string]string{"error": err.Error()},
		})
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("viewerId", viewerID).Str("action", msg.Action).Msg("Viewer action failed")
	}
	h.hub.SendToViewer(viewerID, WSEvent{Type: EventResult, Status: statusFor(err), Data: view})
}

// dispatch maps a client action onto the desk.
func dispatch(ctx context.Context, desk *service.DeskService, msg ClientMessage) (model.DeskView, error) {
	switch msg.Action {
	case "click":
		return desk.Click(ctx, msg.X, msg.Y)
	case "choose":
		return desk.ChooseRegion(ctx, msg.Region)
	case "process":
		return desk.Process(ctx)
	case "reset":
		return desk.Reset(ctx)
	}
	if fn, ok := selectionActions(desk)[msg.Action]; ok {
		return fn(ctx)
	}
	return model.DeskView{}, fmt.Errorf("%w: %s", errUnknownAction, msg.Action)
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
