// Package plugin provides the plugin model and lifecycle registry for
// Switchboard Core.
//
// A plugin is a unit of capability: it owns actions, emits events and
// carries an opaque configuration map. The Registry tracks every loaded
// plugin and drives it through a four-state lifecycle:
//
//	Initialized ──Start──▶ Running ──Stop──▶ Stopped ──Start──▶ Running
//	     │                    │                  │
//	     │ (hook failure)     │ (hook failure)   │
//	     ▼                    ▼                  ▼
//	  Errored ◀───────────────┴────────── Unload (also from Stopped)
//
// Registration places a plugin directly in Initialized without invoking
// any hooks; Initialize runs the plugin's own initialise hook and leaves
// the state unchanged. A failed lifecycle hook moves the plugin to
// Errored, which never recovers automatically; the only legal operation
// from Errored is Unload.
//
// Reserved IDs: the built-in plugins claim fixed GUIDs (see ids.go).
// Register rejects them so external plugins cannot impersonate the
// built-ins; the host installs its own plugins via RegisterBuiltin.
//
// # Key Types
//
//   - Plugin: Interface every plugin implements
//   - Base: Embeddable identity + config storage helper
//   - Registry: Thread-safe lifecycle state machine
//   - State: initialized, running, stopped, errored
//
// # Thread Safety
//
// The Registry serialises lifecycle transitions per plugin ID; operations
// on different plugins proceed concurrently.
package plugin
