package service

// EventDeskUpdated is broadcast with a model.DeskView after every action.
const EventDeskUpdated = "desk_updated"

// Broadcaster sends real-time events to connected viewers.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastDeskEvent(eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastDeskEvent(string, any) {}
