// Package system provides the built-in system plugin. It announces host
// lifecycle transitions as events, so macros can bind to startup and
// shutdown the same way they bind to any other event, and contributes
// the run-command action for launching external programs.
package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/plugin"
)

// Logger defines the logging interface used by the plugin.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventSubmitter is the dispatcher surface the plugin needs.
type EventSubmitter interface {
	Submit(ctx context.Context, evt event.Event) ([]event.HandlerFailure, error)
}

// Source tags every event emitted by this plugin.
const Source = "system"

// Payload texts carried by the lifecycle events. Macro triggers match on
// these.
const (
	EventStartup  = "startup"
	EventShutdown = "shutdown"
)

// Plugin emits a system event when the host starts and another when it
// shuts down, and owns the run-command action factory. It holds no other
// state; both hooks are driven entirely by the plugin registry.
type Plugin struct {
	plugin.Base
	bus    EventSubmitter
	logger Logger
}

var _ plugin.Plugin = (*Plugin)(nil)

// New creates the system plugin. It registers under the reserved system
// plugin ID via RegisterBuiltin.
func New(bus EventSubmitter) *Plugin {
	return &Plugin{
		Base:   plugin.NewBase(plugin.SystemPluginID, "System", "Host startup and shutdown events plus the run-command action"),
		bus:    bus,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the plugin.
func (p *Plugin) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Start announces host startup. A failed submission fails the hook, which
// moves the plugin to Errored.
func (p *Plugin) Start(ctx context.Context) error {
	return p.emit(ctx, EventStartup)
}

// Stop announces host shutdown. A dispatcher that has already closed is
// tolerated; shutdown ordering should not strand the plugin in Errored
// over an event nobody could receive anyway.
func (p *Plugin) Stop(ctx context.Context) error {
	err := p.emit(ctx, EventShutdown)
	if errors.Is(err, event.ErrDispatcherClosed) {
		p.logger.Warn("shutdown event skipped", "reason", "dispatcher closed")
		return nil
	}
	return err
}

func (p *Plugin) emit(ctx context.Context, text string) error {
	evt := event.New(event.TypeSystem, event.TextPayload(text), Source)
	if _, err := p.bus.Submit(ctx, evt); err != nil {
		return fmt.Errorf("emit %s event: %w", text, err)
	}
	p.logger.Info("system event emitted", "payload", text, "event_id", evt.ID)
	return nil
}
