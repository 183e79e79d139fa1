package journal

import (
	"context"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// HandlerName is the dispatcher registration name of the journal feed.
const HandlerName = "journal"

// EventHandler forwards every dispatched event into the journal. Register
// it with the dispatcher alongside the SQLite event log; the two sinks are
// independent and either can be disabled without affecting the other.
type EventHandler struct {
	client *Client
}

var _ event.Handler = (*EventHandler)(nil)

// NewEventHandler creates a handler that records events through client.
func NewEventHandler(client *Client) *EventHandler {
	return &EventHandler{client: client}
}

// Name returns the handler's registration name.
func (h *EventHandler) Name() string {
	return HandlerName
}

// SupportedTypes returns nil, meaning all event types are journalled.
func (h *EventHandler) SupportedTypes() []event.Type {
	return nil
}

// HandleEvent records the event. The underlying write is batched and
// non-blocking, so dispatch never waits on InfluxDB.
func (h *EventHandler) HandleEvent(_ context.Context, evt event.Event) error {
	h.client.RecordEvent(evt)
	return nil
}
