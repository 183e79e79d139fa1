package core

import (
	"context"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// DebugHandlerName identifies the core plugin's event log in the
// dispatcher.
const DebugHandlerName = "core-debug"

// debugHandler logs every dispatched event at debug level. It is the
// running trace of what the system sees, useful when writing macro
// trigger bindings.
type debugHandler struct {
	logger Logger
}

var _ event.Handler = (*debugHandler)(nil)

func (h *debugHandler) Name() string { return DebugHandlerName }

// SupportedTypes returns nil; the debug log sees every event type.
func (h *debugHandler) SupportedTypes() []event.Type { return nil }

func (h *debugHandler) HandleEvent(_ context.Context, evt event.Event) error {
	h.logger.Debug("event",
		"event_id", evt.ID,
		"type", evt.Type,
		"source", evt.Source,
		"payload", evt.Payload.Text(),
	)
	return nil
}
