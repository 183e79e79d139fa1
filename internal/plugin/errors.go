package plugin

import "errors"

// Domain errors for the plugin package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, plugin.ErrInvalidTransition) {
//	    // handle illegal lifecycle request
//	}
var (
	// ErrPluginNotFound is returned when a plugin ID is not registered.
	ErrPluginNotFound = errors.New("plugin: not found")

	// ErrNilPlugin is returned when registering a nil plugin.
	ErrNilPlugin = errors.New("plugin: nil plugin")

	// ErrInvalidID is returned when a plugin reports an empty ID.
	ErrInvalidID = errors.New("plugin: invalid id")

	// ErrDuplicateID is returned when a plugin ID is already registered.
	ErrDuplicateID = errors.New("plugin: duplicate id")

	// ErrReservedID is returned when registering a plugin with an ID
	// reserved for the built-in plugins.
	ErrReservedID = errors.New("plugin: reserved id")

	// ErrInvalidTransition is returned when a lifecycle operation is not
	// legal in the plugin's current state.
	ErrInvalidTransition = errors.New("plugin: invalid state transition")

	// ErrInvalidConfig is returned when a plugin rejects a configuration
	// update. The previous configuration remains in effect.
	ErrInvalidConfig = errors.New("plugin: invalid config")

	// ErrHookFailure is returned when a lifecycle hook fails. The plugin
	// moves to Errored.
	ErrHookFailure = errors.New("plugin: lifecycle hook failed")
)
