package globals

import "errors"

// Sentinel errors returned by the store and its backends. Callers should
// match with errors.Is; wrapped messages carry the key and backend detail.
//
//	value, err := store.GetString(ctx, "scene/livingroom")
//	if errors.Is(err, globals.ErrNotFound) {
//	    // key has never been set, or was deleted
//	}
var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("globals: key not found")

	// ErrTypeMismatch is returned by typed getters when the stored value
	// holds a different kind than the one requested.
	ErrTypeMismatch = errors.New("globals: type mismatch")

	// ErrBackendUnavailable is returned when the backing service cannot be
	// reached. The condition is recoverable; retry once connectivity returns.
	ErrBackendUnavailable = errors.New("globals: backend unavailable")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("globals: store is closed")

	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("globals: invalid key")

	// ErrInvalidValue is returned when a value envelope cannot be decoded.
	ErrInvalidValue = errors.New("globals: invalid value")

	// ErrNilCallback is returned when subscribing with a nil callback.
	ErrNilCallback = errors.New("globals: nil callback")
)
