package event

import (
	"context"
	"fmt"
)

// LogHandlerName is the dispatcher registration name of the event log.
const LogHandlerName = "event-log"

// LogHandler persists every dispatched event to the Repository.
//
// It supports all event types and is usually the first handler registered
// so the log reflects the order events entered the dispatcher.
type LogHandler struct {
	repo Repository
}

// NewLogHandler creates a handler that writes events to repo.
func NewLogHandler(repo Repository) *LogHandler {
	return &LogHandler{repo: repo}
}

// Name returns the handler's registration name.
func (h *LogHandler) Name() string {
	return LogHandlerName
}

// SupportedTypes returns nil, meaning all event types are logged.
func (h *LogHandler) SupportedTypes() []Type {
	return nil
}

// HandleEvent appends the event to the persistent log.
func (h *LogHandler) HandleEvent(ctx context.Context, evt Event) error {
	if err := h.repo.Insert(ctx, evt); err != nil {
		return fmt.Errorf("logging event %q: %w", evt.ID, err)
	}
	return nil
}
