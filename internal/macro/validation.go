package macro

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// ValidateMacro checks that a macro is well formed before it enters the
// registry. The action tree itself is validated by the action package when
// the tree is built.
func ValidateMacro(m *Macro) error {
	if m == nil {
		return fmt.Errorf("%w: macro is nil", ErrInvalidMacro)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if len(m.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidMacro, maxDescriptionLength)
	}
	if m.Trigger.EventType != "" && !m.Trigger.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidTrigger, m.Trigger.EventType)
	}
	if m.Root == nil {
		return fmt.Errorf("%w: %q has no action tree", ErrNoAction, m.Name)
	}
	return nil
}

// GenerateID returns a new unique identifier for macros and runs.
func GenerateID() string {
	return uuid.New().String()
}
