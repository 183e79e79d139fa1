package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
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

// EventBus is the dispatcher surface the plugin and its actions need.
type EventBus interface {
	Submit(ctx context.Context, evt event.Event) ([]event.HandlerFailure, error)
	RegisterHandler(handler event.Handler) error
	UnregisterHandler(name string) error
}

// GlobalStore is the slice of the globals store used by the core actions
// and the script bridge. Satisfied by *globals.Store.
type GlobalStore interface {
	Set(ctx context.Context, key string, value globals.Value) error
	Get(ctx context.Context, key string) (globals.Value, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Event sources used by core actions.
const (
	// Source tags events submitted by a trigger-event action unless the
	// action overrides it.
	Source = "core"

	// ScriptSource tags events raised from inside a script via
	// sb.trigger.
	ScriptSource = "script"
)

// Plugin is the built-in core automation plugin. It owns the script,
// trigger-event and set-global action factories and, while running,
// keeps a debug handler on the dispatcher that logs every event.
//
// The "log_events" config key (bool, default true) controls whether the
// debug handler is installed; changing it takes effect on the next Start.
type Plugin struct {
	plugin.Base
	bus    EventBus
	store  GlobalStore
	logger Logger
}

var _ plugin.Plugin = (*Plugin)(nil)

// New creates the core plugin. It registers under the reserved core
// plugin ID via RegisterBuiltin.
func New(bus EventBus, store GlobalStore) *Plugin {
	return &Plugin{
		Base:   plugin.NewBase(plugin.CorePluginID, "Core", "Script, trigger-event and set-global actions plus a debug event log"),
		bus:    bus,
		store:  store,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the plugin. Script print output and the
// debug event log both land here.
func (p *Plugin) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Start installs the debug event handler unless "log_events" is false.
func (p *Plugin) Start(context.Context) error {
	if !p.logEventsEnabled() {
		return nil
	}
	if err := p.bus.RegisterHandler(&debugHandler{logger: p.logger}); err != nil {
		return fmt.Errorf("register debug handler: %w", err)
	}
	return nil
}

// Stop removes the debug event handler. A handler that was never
// installed or a dispatcher that has already closed is tolerated.
func (p *Plugin) Stop(context.Context) error {
	err := p.bus.UnregisterHandler(DebugHandlerName)
	if err != nil && !errors.Is(err, event.ErrHandlerNotFound) && !errors.Is(err, event.ErrDispatcherClosed) {
		return fmt.Errorf("unregister debug handler: %w", err)
	}
	return nil
}

// UpdateConfig validates the known keys before accepting the update.
func (p *Plugin) UpdateConfig(cfg plugin.Config) error {
	if v, ok := cfg["log_events"]; ok {
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("log_events: want bool, got %T", v)
		}
	}
	return p.Base.UpdateConfig(cfg)
}

// logEventsEnabled reads the "log_events" flag, defaulting to true when
// the key is absent.
func (p *Plugin) logEventsEnabled() bool {
	v, ok := p.ConfigValue("log_events")
	if !ok {
		return true
	}
	enabled, isBool := v.(bool)
	return !isBool || enabled
}
