package plugin

import (
	"context"
	"sync"
)

// Config holds a plugin's opaque configuration. The Registry and Base
// treat it as a document: values are replaced atomically, never merged.
type Config map[string]any

// Clone creates a complete independent copy of the Config.
// Nested maps and slices are recursively copied so modifications to the
// copy do not affect the original.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	cpy := make(Config, len(c))
	for k, v := range c {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// Plugin is implemented by every plugin managed by the Registry.
//
// Lifecycle hooks are invoked by the Registry only; a hook returning an
// error moves the plugin to Errored. Config and UpdateConfig must be safe
// for concurrent use (embedding Base provides this).
type Plugin interface {
	// ID returns the plugin's unique identifier, conventionally a GUID.
	ID() string

	// Name returns the human-readable plugin name.
	Name() string

	// Description returns a short description of the plugin.
	Description() string

	// Initialize prepares the plugin for use. Called at most once,
	// before the first Start.
	Initialize(ctx context.Context) error

	// Start activates the plugin.
	Start(ctx context.Context) error

	// Stop deactivates the plugin. A stopped plugin may be started again.
	Stop(ctx context.Context) error

	// Config returns a copy of the current configuration.
	Config() Config

	// UpdateConfig atomically replaces the configuration. Returning an
	// error rejects the update and retains the previous configuration.
	UpdateConfig(cfg Config) error
}

// Info is a point-in-time snapshot of a registered plugin.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       State  `json:"state"`
}

// Base provides identity and thread-safe configuration storage for
// plugin implementations. Embed it and override the lifecycle hooks
// as needed; the embedded hooks are no-ops.
//
//	type clock struct {
//	    plugin.Base
//	}
//
//	func newClock() *clock {
//	    return &clock{Base: plugin.NewBase("{...}", "Clock", "Emits tick events")}
//	}
type Base struct {
	id          string
	name        string
	description string

	configMu sync.RWMutex
	config   Config
}

// NewBase creates plugin identity with an empty configuration.
func NewBase(id, name, description string) Base {
	return Base{
		id:          id,
		name:        name,
		description: description,
		config:      Config{},
	}
}

// ID returns the plugin's unique identifier.
func (b *Base) ID() string { return b.id }

// Name returns the human-readable plugin name.
func (b *Base) Name() string { return b.name }

// Description returns a short description of the plugin.
func (b *Base) Description() string { return b.description }

// Initialize is a no-op hook.
func (b *Base) Initialize(context.Context) error { return nil }

// Start is a no-op hook.
func (b *Base) Start(context.Context) error { return nil }

// Stop is a no-op hook.
func (b *Base) Stop(context.Context) error { return nil }

// Config returns a deep copy of the current configuration; callers can
// safely modify it.
func (b *Base) Config() Config {
	b.configMu.RLock()
	defer b.configMu.RUnlock()
	return b.config.Clone()
}

// UpdateConfig atomically replaces the configuration with a deep copy
// of cfg. It never rejects; plugins with validation rules override this,
// validate, then delegate to the embedded implementation.
func (b *Base) UpdateConfig(cfg Config) error {
	b.configMu.Lock()
	defer b.configMu.Unlock()
	b.config = cfg.Clone()
	return nil
}

// ConfigValue returns a single configuration value by key.
func (b *Base) ConfigValue(key string) (any, bool) {
	b.configMu.RLock()
	defer b.configMu.RUnlock()
	v, ok := b.config[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}
