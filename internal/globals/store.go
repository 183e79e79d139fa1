package globals

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Logger is the minimal logging interface the globals package needs.
// It matches slog-style structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Callback receives change notifications for a subscribed key. Callbacks
// run on the notifying goroutine and must not block; a slow callback stalls
// delivery for every subscriber behind it.
type Callback func(key string, value Value)

// Backend persists global values. Implementations are safe for concurrent
// use. Set must notify the backend's local subscribers after the value is
// durably applied; networked backends additionally deliver changes made by
// other instances, so subscribers may see a change more than once.
type Backend interface {
	Set(ctx context.Context, key string, value Value) error
	Get(ctx context.Context, key string) (Value, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// Subscribe registers a callback for changes to key. Multiple callbacks
	// may be registered for the same key; they run in registration order.
	Subscribe(key string, callback Callback) error

	// Unsubscribe removes every callback registered for key.
	Unsubscribe(key string) error

	// Close releases the backend's resources. Values persisted by networked
	// backends survive; in-memory state does not.
	Close() error
}

// Store is the typed front door to a Backend. It enforces kind checks on
// reads, validates keys, and gates every operation once closed.
//
// Typed getters fail with ErrTypeMismatch when the stored value holds a
// different kind; a Set may freely overwrite a key with a value of another
// kind.
type Store struct {
	backend Backend
	logger  Logger
	closed  atomic.Bool
}

// NewStore wraps a backend. Logging is disabled until SetLogger is called.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, logger: noopLogger{}}
}

// SetLogger installs a logger for store activity. A nil logger is ignored.
func (s *Store) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Store) guard(key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

// Set stores value under key, replacing any previous value regardless of
// its kind.
func (s *Store) Set(ctx context.Context, key string, value Value) error {
	if err := s.guard(key); err != nil {
		return err
	}
	if !value.Kind().Valid() {
		return fmt.Errorf("%w: no variant populated", ErrInvalidValue)
	}
	if err := s.backend.Set(ctx, key, value); err != nil {
		return err
	}
	s.logger.Debug("global set", "key", key, "kind", value.Kind())
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (Value, error) {
	if err := s.guard(key); err != nil {
		return Value{}, err
	}
	return s.backend.Get(ctx, key)
}

// SetString stores a string value.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	return s.Set(ctx, key, StringValue(value))
}

// SetInteger stores an integer value.
func (s *Store) SetInteger(ctx context.Context, key string, value int64) error {
	return s.Set(ctx, key, IntegerValue(value))
}

// SetFloat stores a floating-point value.
func (s *Store) SetFloat(ctx context.Context, key string, value float64) error {
	return s.Set(ctx, key, FloatValue(value))
}

// SetBoolean stores a boolean value.
func (s *Store) SetBoolean(ctx context.Context, key string, value bool) error {
	return s.Set(ctx, key, BooleanValue(value))
}

// SetBinary stores an opaque byte slice.
func (s *Store) SetBinary(ctx context.Context, key string, value []byte) error {
	return s.Set(ctx, key, BinaryValue(value))
}

// SetJSON stores an arbitrary JSON document.
func (s *Store) SetJSON(ctx context.Context, key string, value []byte) error {
	return s.Set(ctx, key, JSONValue(value))
}

// GetString returns the string stored under key. A value of any other kind
// fails with ErrTypeMismatch.
func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	str, ok := value.AsString()
	if !ok {
		return "", mismatch(key, value.Kind(), KindString)
	}
	return str, nil
}

// GetInteger returns the integer stored under key.
func (s *Store) GetInteger(ctx context.Context, key string) (int64, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, ok := value.AsInteger()
	if !ok {
		return 0, mismatch(key, value.Kind(), KindInteger)
	}
	return n, nil
}

// GetFloat returns the float stored under key.
func (s *Store) GetFloat(ctx context.Context, key string) (float64, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	f, ok := value.AsFloat()
	if !ok {
		return 0, mismatch(key, value.Kind(), KindFloat)
	}
	return f, nil
}

// GetBoolean returns the boolean stored under key.
func (s *Store) GetBoolean(ctx context.Context, key string) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, ok := value.AsBoolean()
	if !ok {
		return false, mismatch(key, value.Kind(), KindBoolean)
	}
	return b, nil
}

// GetBinary returns a copy of the bytes stored under key.
func (s *Store) GetBinary(ctx context.Context, key string) ([]byte, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, ok := value.AsBinary()
	if !ok {
		return nil, mismatch(key, value.Kind(), KindBinary)
	}
	return data, nil
}

// GetJSON returns a copy of the JSON document stored under key.
func (s *Store) GetJSON(ctx context.Context, key string) ([]byte, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	raw, ok := value.AsJSON()
	if !ok {
		return nil, mismatch(key, value.Kind(), KindJSON)
	}
	return raw, nil
}

func mismatch(key string, got, want Kind) error {
	return fmt.Errorf("%w: %q holds %s, want %s", ErrTypeMismatch, key, got, want)
}

// Exists reports whether key has a stored value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.guard(key); err != nil {
		return false, err
	}
	return s.backend.Exists(ctx, key)
}

// Delete removes key. Deleting a key that does not exist is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.guard(key); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Debug("global deleted", "key", key)
	return nil
}

// Subscribe registers callback for changes to key.
func (s *Store) Subscribe(key string, callback Callback) error {
	if err := s.guard(key); err != nil {
		return err
	}
	if callback == nil {
		return ErrNilCallback
	}
	return s.backend.Subscribe(key, callback)
}

// Unsubscribe removes every callback registered for key.
func (s *Store) Unsubscribe(key string) error {
	if err := s.guard(key); err != nil {
		return err
	}
	return s.backend.Unsubscribe(key)
}

// Resolve looks up key and renders the value as text. It satisfies the
// variable resolver interface used by condition evaluation, so a Store can
// be attached to an execution context directly. Missing keys, kind-less
// values and backend failures all resolve as absent.
func (s *Store) Resolve(ctx context.Context, name string) (string, bool) {
	value, err := s.Get(ctx, name)
	if err != nil {
		return "", false
	}
	return value.Text(), true
}

// Close shuts the store down. Every subsequent operation fails with
// ErrStoreClosed. Closing twice is harmless.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.backend.Close()
}
