package action

import (
	"errors"
	"fmt"
)

// Sentinel errors for the action package.
//
// Callers distinguish failure modes with errors.Is:
//
//	if errors.Is(err, action.ErrExecutionFailed) { ... }
var (
	// ErrExecutionFailed indicates an action failed while executing. Every
	// error returned by Execute matches it, whatever the underlying cause.
	ErrExecutionFailed = errors.New("action: execution failed")

	// ErrZeroStep indicates a for loop was configured with a step of zero,
	// which would never terminate.
	ErrZeroStep = errors.New("action: for loop step cannot be zero")
)

// Error records an execution failure together with the identity of the node
// that failed, so a failure deep inside a tree still names its origin.
type Error struct {
	ActionID   string
	ActionName string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("action %q (%s): %v", e.ActionName, e.ActionID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrExecutionFailed, so callers can classify failures without
// unpacking the node identity.
func (e *Error) Is(target error) bool { return target == ErrExecutionFailed }

// failure attributes err to the given action. An error already carrying a
// node identity passes through unchanged, keeping the innermost failing node
// attributed as the tree unwinds.
func failure(a Action, err error) error {
	var actionErr *Error
	if errors.As(err, &actionErr) {
		return err
	}
	return &Error{ActionID: a.ID(), ActionName: a.Name(), Err: err}
}
