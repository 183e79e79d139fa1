package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// RelayHandlerName is the dispatcher registration name of the MQTT relay.
const RelayHandlerName = "mqtt-relay"

// RelayHandler publishes every dispatched event to the broker, one topic
// per event type under switchboard/events/. External systems subscribe to
// the feed instead of polling the HTTP event log.
//
// Publish failures surface as handler failures on the dispatch, so a
// broker outage is visible to submitters without blocking the other
// handlers.
type RelayHandler struct {
	client *Client
}

var _ event.Handler = (*RelayHandler)(nil)

// NewRelayHandler creates a handler that relays events through client.
func NewRelayHandler(client *Client) *RelayHandler {
	return &RelayHandler{client: client}
}

// Name returns the handler's registration name.
func (h *RelayHandler) Name() string {
	return RelayHandlerName
}

// SupportedTypes returns nil, meaning all event types are relayed.
func (h *RelayHandler) SupportedTypes() []event.Type {
	return nil
}

// HandleEvent publishes the event as JSON to its type topic, not retained,
// at the client's configured QoS.
func (h *RelayHandler) HandleEvent(_ context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", evt.ID, err)
	}

	topic := Topics{}.Event(string(evt.Type))
	if err := h.client.Publish(topic, payload, byte(h.client.cfg.QoS), false); err != nil {
		return fmt.Errorf("relaying event %s: %w", evt.ID, err)
	}
	return nil
}
