// Package event provides the event model and dispatcher for Switchboard Core.
//
// Events are the currency of the system: plugins and the host emit them,
// handlers consume them, and the macro engine uses them as triggers. Every
// event carries a unique ID, a type, a typed payload, a source identifier
// (usually a plugin ID) and a UTC timestamp.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│               Dispatcher (dispatcher.go)               │
//	│  Fans submitted events out to registered handlers      │
//	│  ┌──────────────┐    ┌──────────────┐                │
//	│  │   Handler    │    │  LogHandler  │                │
//	│  │ (interface)  │    │(loghandler.go)│               │
//	│  └──────────────┘    └──────┬───────┘                │
//	│        │                    ▼                         │
//	│        │             ┌──────────────┐                 │
//	│        │             │  Repository  │                 │
//	│        │             │(repository.go)│                │
//	│        │             └──────────────┘                 │
//	│        ▼                                              │
//	│  ┌──────────────────────────────────────────────┐    │
//	│  │  Delivery Pipeline                            │    │
//	│  │  1. Snapshot registered handlers              │    │
//	│  │  2. Deliver in registration order             │    │
//	│  │  3. Isolate handler failures (no abort)       │    │
//	│  │  4. Hand event to the macro trigger           │    │
//	│  └──────────────────────────────────────────────┘    │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Event: Immutable record of something that happened
//   - Payload: Tagged union of text, number, boolean or custom JSON
//   - Dispatcher: Thread-safe handler registry and delivery loop
//   - Handler: Consumer interface implemented by plugins and sinks
//   - Repository: Persistent event log backed by SQLite
//
// # Thread Safety
//
// The Dispatcher is safe for concurrent use. Submit may be called from any
// goroutine; handler registration and delivery use separate lock scopes so
// a slow handler never blocks registration.
package event
