package plugin

// State represents a plugin's lifecycle state. State is owned and
// transitioned only by the Registry.
type State string

const (
	// StateInitialized is the state after registration and after a
	// successful Initialize hook.
	StateInitialized State = "initialized"

	// StateRunning is the state after a successful Start hook.
	StateRunning State = "running"

	// StateStopped is the state after a successful Stop hook. A stopped
	// plugin may be started again.
	StateStopped State = "stopped"

	// StateErrored is the state after a failed lifecycle hook. It never
	// recovers automatically; the only legal operation is Unload.
	StateErrored State = "errored"
)

// AllStates returns all lifecycle states.
func AllStates() []State {
	return []State{StateInitialized, StateRunning, StateStopped, StateErrored}
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StateInitialized, StateRunning, StateStopped, StateErrored:
		return true
	}
	return false
}
