// Package macro binds events to action trees for Switchboard Core.
//
// A macro pairs a trigger (event type plus optional source and payload
// match) with the root of an action tree. The engine receives dispatched
// events via event.MacroTrigger and starts one run per matching enabled
// macro; macros may also be run manually, bypassing the trigger. Each run
// executes a private clone of the tree on its own goroutine under a hard
// timeout, and its outcome lands in the run history.
//
// # Key Types
//
//   - Macro: Trigger plus action tree, registered in memory
//   - Trigger: Event match rule (type, optional source and payload)
//   - Registry: Thread-safe macro store handing out deep copies
//   - Engine: Starts, tracks, cancels and records runs
//   - Run: Persistent record of one execution
//   - Repository: Run history backed by SQLite
//
// # Lifecycle
//
// A run moves through pending and running into one of completed, failed or
// cancelled. The pending record is written before execution starts and
// updated once with the final state, so a crash mid-run leaves a visible
// pending row rather than nothing.
//
// # Thread Safety
//
// Registry and Engine are safe for concurrent use. Runs never serialise
// behind each other; cancelling one run does not disturb the rest.
package macro
