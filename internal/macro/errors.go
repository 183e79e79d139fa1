package macro

import "errors"

// Domain errors for the macro package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, macro.ErrMacroNotFound) {
//	    // handle not found case
//	}
var (
	// ErrMacroNotFound is returned when a macro ID does not exist.
	ErrMacroNotFound = errors.New("macro: not found")

	// ErrMacroExists is returned when registering a macro with an ID that
	// is already registered.
	ErrMacroExists = errors.New("macro: already exists")

	// ErrMacroDisabled is returned when running a disabled macro.
	ErrMacroDisabled = errors.New("macro: disabled")

	// ErrInvalidMacro is returned when macro validation fails.
	ErrInvalidMacro = errors.New("macro: invalid")

	// ErrInvalidName is returned when a macro name is empty or too long.
	ErrInvalidName = errors.New("macro: invalid name")

	// ErrInvalidTrigger is returned when a trigger names an unknown event type.
	ErrInvalidTrigger = errors.New("macro: invalid trigger")

	// ErrNoAction is returned when a macro has no action tree.
	ErrNoAction = errors.New("macro: no action tree")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("macro: run not found")

	// ErrEngineClosed is returned by engine operations after Close.
	ErrEngineClosed = errors.New("macro: engine is closed")
)
