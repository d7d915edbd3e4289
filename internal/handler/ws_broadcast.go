package handler

// BroadcastDeskEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastDeskEvent(eventType string, data any) {
	h.Broadcast(WSEvent{Type: eventType, Data: data})
}
