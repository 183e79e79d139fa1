package event

import "errors"

// Domain errors for the event package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, event.ErrHandlerNotFound) {
//	    // handle missing handler
//	}
var (
	// ErrInvalidEvent is returned when an event fails validation.
	ErrInvalidEvent = errors.New("event: invalid event")

	// ErrUnsupportedType is returned when an event type is not recognised.
	ErrUnsupportedType = errors.New("event: unsupported type")

	// ErrDispatcherClosed is returned when using a dispatcher after Close.
	ErrDispatcherClosed = errors.New("event: dispatcher closed")

	// ErrInvalidPayload is returned when a payload envelope cannot be decoded.
	ErrInvalidPayload = errors.New("event: invalid payload")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("event: nil handler")

	// ErrInvalidHandlerName is returned when a handler reports an empty name.
	ErrInvalidHandlerName = errors.New("event: invalid handler name")

	// ErrDuplicateHandler is returned when a handler name is already registered.
	ErrDuplicateHandler = errors.New("event: handler already registered")

	// ErrHandlerNotFound is returned when unregistering an unknown handler.
	ErrHandlerNotFound = errors.New("event: handler not registered")

	// ErrEventNotFound is returned when an event ID does not exist in the log.
	ErrEventNotFound = errors.New("event: not found")
)
