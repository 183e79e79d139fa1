package core

import (
	"fmt"

	"github.com/nerrad567/switchboard-core/internal/action"
	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
)

// TriggerEventAction returns a leaf action that submits a new event each
// time it executes. An empty eventType defaults to the plugin type and an
// empty source to the core source. The submission is synchronous; any
// macro the new event matches starts on its own run.
//
// A binding that matches the event this action emits will recurse, so
// trigger chains need the same care as any other feedback loop.
func (p *Plugin) TriggerEventAction(name, description string, eventType event.Type, payload event.Payload, source string) *action.Item {
	if eventType == "" {
		eventType = event.TypePlugin
	}
	if source == "" {
		source = Source
	}
	return action.NewItem(name, description, p.ID(), func(execCtx *action.ExecutionContext) error {
		evt := event.New(eventType, payload, source)
		if _, err := p.bus.Submit(execCtx.Context(), evt); err != nil {
			return fmt.Errorf("trigger event: %w", err)
		}
		p.logger.Debug("event triggered by action",
			"action", name,
			"event_id", evt.ID,
			"type", evt.Type,
			"source", evt.Source,
		)
		return nil
	})
}

// SetGlobalAction returns a leaf action that writes value under key each
// time it executes.
func (p *Plugin) SetGlobalAction(name, description, key string, value globals.Value) *action.Item {
	return action.NewItem(name, description, p.ID(), func(execCtx *action.ExecutionContext) error {
		if err := p.store.Set(execCtx.Context(), key, value); err != nil {
			return fmt.Errorf("set global %q: %w", key, err)
		}
		return nil
	})
}
