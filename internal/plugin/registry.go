package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// entry pairs a plugin with its lifecycle state. The entry mutex
// serialises transitions for one plugin; transitions on different
// plugins never block each other.
type entry struct {
	mu      sync.Mutex
	plugin  Plugin
	state   State
	removed bool
}

// snapshot returns the entry's Info, or false if it has been unloaded.
func (e *entry) snapshot() (Info, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Info{}, false
	}
	return Info{
		ID:          e.plugin.ID(),
		Name:        e.plugin.Name(),
		Description: e.plugin.Description(),
		State:       e.state,
	}, true
}

// Registry tracks loaded plugins and owns their lifecycle state.
//
// All state transitions go through the Registry; plugins never change
// their own state. A failed lifecycle hook moves the plugin to Errored,
// which is terminal apart from Unload.
//
// Thread Safety: all methods are safe for concurrent use. Transitions
// are serialised per plugin ID.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  Logger
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Register adds a plugin in state Initialized without invoking any hooks.
//
// Returns:
//   - ErrNilPlugin if p is nil
//   - ErrInvalidID if the plugin reports an empty ID
//   - ErrReservedID if the ID belongs to a built-in plugin
//   - ErrDuplicateID if the ID is already registered
//
// A rejected registration leaves the registry unchanged.
func (r *Registry) Register(p Plugin) error {
	return r.register(p, false)
}

// RegisterBuiltin adds one of the host's own plugins, permitting a
// reserved ID. External plugin loading must use Register.
func (r *Registry) RegisterBuiltin(p Plugin) error {
	return r.register(p, true)
}

func (r *Registry) register(p Plugin, allowReserved bool) error {
	if p == nil {
		return ErrNilPlugin
	}
	id := p.ID()
	if id == "" {
		return ErrInvalidID
	}
	if !allowReserved && IsReservedID(id) {
		return fmt.Errorf("%w: %s", ErrReservedID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.entries[id] = &entry{plugin: p, state: StateInitialized}

	r.logger.Info("plugin registered",
		"plugin_id", id,
		"name", p.Name(),
		"builtin", allowReserved,
	)
	return nil
}

// Initialize runs the plugin's Initialize hook. Legal only in state
// Initialized; the state is unchanged on success. A hook failure moves
// the plugin to Errored and returns ErrHookFailure.
func (r *Registry) Initialize(ctx context.Context, id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if e.state != StateInitialized {
		return fmt.Errorf("%w: cannot initialise %s plugin %s", ErrInvalidTransition, e.state, id)
	}

	if hookErr := e.plugin.Initialize(ctx); hookErr != nil {
		e.state = StateErrored
		r.logger.Error("plugin initialise hook failed", "plugin_id", id, "error", hookErr)
		return fmt.Errorf("%w: initialise %s: %v", ErrHookFailure, id, hookErr)
	}

	r.logger.Info("plugin initialised", "plugin_id", id, "name", e.plugin.Name())
	return nil
}

// Start runs the plugin's Start hook and moves it to Running. Legal from
// Initialized or Stopped. A hook failure moves the plugin to Errored and
// returns ErrHookFailure.
func (r *Registry) Start(ctx context.Context, id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if e.state != StateInitialized && e.state != StateStopped {
		return fmt.Errorf("%w: cannot start %s plugin %s", ErrInvalidTransition, e.state, id)
	}

	if hookErr := e.plugin.Start(ctx); hookErr != nil {
		e.state = StateErrored
		r.logger.Error("plugin start hook failed", "plugin_id", id, "error", hookErr)
		return fmt.Errorf("%w: start %s: %v", ErrHookFailure, id, hookErr)
	}

	e.state = StateRunning
	r.logger.Info("plugin started", "plugin_id", id, "name", e.plugin.Name())
	return nil
}

// Stop runs the plugin's Stop hook and moves it to Stopped. Legal only
// from Running. A hook failure moves the plugin to Errored and returns
// ErrHookFailure.
func (r *Registry) Stop(ctx context.Context, id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if e.state != StateRunning {
		return fmt.Errorf("%w: cannot stop %s plugin %s", ErrInvalidTransition, e.state, id)
	}

	if hookErr := e.plugin.Stop(ctx); hookErr != nil {
		e.state = StateErrored
		r.logger.Error("plugin stop hook failed", "plugin_id", id, "error", hookErr)
		return fmt.Errorf("%w: stop %s: %v", ErrHookFailure, id, hookErr)
	}

	e.state = StateStopped
	r.logger.Info("plugin stopped", "plugin_id", id, "name", e.plugin.Name())
	return nil
}

// Unload removes a plugin from the registry. Legal only from Stopped or
// Errored; no hooks are invoked. The ID may be registered again
// afterwards.
func (r *Registry) Unload(_ context.Context, id string) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if e.state != StateStopped && e.state != StateErrored {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: cannot unload %s plugin %s", ErrInvalidTransition, state, id)
	}
	e.removed = true
	e.mu.Unlock()

	// The entry lock is released before taking the registry lock; the
	// removed flag keeps concurrent transitions out in the gap.
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()

	r.logger.Info("plugin unloaded", "plugin_id", id)
	return nil
}

// State returns the plugin's current lifecycle state.
func (r *Registry) State(id string) (State, error) {
	e, err := r.entry(id)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return "", fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return e.state, nil
}

// Get returns the registered plugin with the given ID.
func (r *Registry) Get(id string) (Plugin, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return e.plugin, nil
}

// List returns a snapshot of every registered plugin sorted by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if info, ok := e.snapshot(); ok {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Config returns a copy of the plugin's current configuration.
func (r *Registry) Config(id string) (Config, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	return e.plugin.Config(), nil
}

// UpdateConfig atomically replaces the plugin's configuration. A plugin
// rejecting the update yields ErrInvalidConfig and the previous
// configuration remains in effect.
func (r *Registry) UpdateConfig(id string, cfg Config) error {
	e, err := r.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	if updateErr := e.plugin.UpdateConfig(cfg); updateErr != nil {
		r.logger.Warn("plugin rejected config update", "plugin_id", id, "error", updateErr)
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, id, updateErr)
	}

	r.logger.Debug("plugin config updated", "plugin_id", id)
	return nil
}

// entry looks up a registry entry by plugin ID.
func (r *Registry) entry(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return e, nil
}
