package globals

import (
	"context"
	"fmt"
	"sync"
)

// LocalBackend keeps globals in process memory. It is the default backend
// for single-instance deployments: no persistence, no cross-instance
// delivery, and exactly-once synchronous notification on every Set.
type LocalBackend struct {
	mu          sync.RWMutex
	values      map[string]Value
	subscribers map[string][]Callback
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend returns an empty in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		values:      make(map[string]Value),
		subscribers: make(map[string][]Callback),
	}
}

// Set stores value and then notifies key's subscribers in registration
// order. Callbacks run on the calling goroutine after the write lock is
// released, so a callback may re-enter the backend.
func (b *LocalBackend) Set(_ context.Context, key string, value Value) error {
	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()

	b.notify(key, value)
	return nil
}

// Get returns the value stored under key.
func (b *LocalBackend) Get(_ context.Context, key string) (Value, error) {
	b.mu.RLock()
	value, ok := b.values[key]
	b.mu.RUnlock()
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return value, nil
}

// Exists reports whether key has a stored value.
func (b *LocalBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	_, ok := b.values[key]
	b.mu.RUnlock()
	return ok, nil
}

// Delete removes key. Subscribers are not notified and deleting an absent
// key is not an error.
func (b *LocalBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.values, key)
	b.mu.Unlock()
	return nil
}

// Subscribe registers callback for changes to key.
func (b *LocalBackend) Subscribe(key string, callback Callback) error {
	if callback == nil {
		return ErrNilCallback
	}
	b.mu.Lock()
	b.subscribers[key] = append(b.subscribers[key], callback)
	b.mu.Unlock()
	return nil
}

// Unsubscribe removes every callback registered for key.
func (b *LocalBackend) Unsubscribe(key string) error {
	b.mu.Lock()
	delete(b.subscribers, key)
	b.mu.Unlock()
	return nil
}

// Close discards all values and subscriptions.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	b.values = make(map[string]Value)
	b.subscribers = make(map[string][]Callback)
	b.mu.Unlock()
	return nil
}

func (b *LocalBackend) notify(key string, value Value) {
	b.mu.RLock()
	callbacks := make([]Callback, len(b.subscribers[key]))
	copy(callbacks, b.subscribers[key])
	b.mu.RUnlock()

	for _, callback := range callbacks {
		callback(key, value)
	}
}
