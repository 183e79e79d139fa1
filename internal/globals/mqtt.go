package globals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/mqtt"
)

// globalsQoS is the delivery level for global value envelopes. At-least-once
// keeps retained values intact across broker restarts without the overhead
// of exactly-once handshakes.
const globalsQoS byte = 1

// MQTTClient is the broker surface the backend needs. *mqtt.Client
// satisfies it; tests substitute a fake.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// MQTTBackend shares globals between instances through retained broker
// messages. Each key maps to one topic under switchboard/globals/; setting
// a key publishes its envelope retained, so late joiners receive the full
// state the moment they subscribe.
//
// A wildcard subscription established at construction keeps a local cache
// warm. Reads are served from that cache, which means they keep working
// while the broker connection is down; writes require the connection and
// fail with ErrBackendUnavailable otherwise.
//
// Subscribers are notified synchronously on local Set and again when the
// broker echoes the publish back, so delivery is at-least-once. Changes
// made by other instances arrive through the same wildcard subscription.
type MQTTBackend struct {
	client MQTTClient
	topics mqtt.Topics
	logger Logger

	mu          sync.RWMutex
	cache       map[string]Value
	subscribers map[string][]Callback
}

var _ Backend = (*MQTTBackend)(nil)

// NewMQTTBackend subscribes to the globals namespace and returns a backend
// whose cache fills as retained values arrive. The client is borrowed, not
// owned; Close drops the subscription but leaves the connection up.
func NewMQTTBackend(client MQTTClient) (*MQTTBackend, error) {
	b := &MQTTBackend{
		client:      client,
		logger:      noopLogger{},
		cache:       make(map[string]Value),
		subscribers: make(map[string][]Callback),
	}
	if err := client.Subscribe(b.topics.AllGlobals(), globalsQoS, b.handleMessage); err != nil {
		return nil, fmt.Errorf("subscribing to globals namespace: %w", err)
	}
	return b, nil
}

// SetLogger installs a logger for backend activity. A nil logger is ignored.
func (b *MQTTBackend) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Set caches value, publishes its envelope retained, then notifies local
// subscribers.
func (b *MQTTBackend) Set(_ context.Context, key string, value Value) error {
	if err := validTopicKey(key); err != nil {
		return err
	}
	if !b.client.IsConnected() {
		return fmt.Errorf("%w: broker connection down", ErrBackendUnavailable)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding global %q: %w", key, err)
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()

	if err := b.client.Publish(b.topics.Global(key), payload, globalsQoS, true); err != nil {
		return fmt.Errorf("%w: publishing %q: %v", ErrBackendUnavailable, key, err)
	}

	b.notify(key, value)
	return nil
}

// Get serves key from the cache. The cache mirrors the broker's retained
// state, so a miss while connected means the key does not exist; a miss
// while disconnected is indeterminate and fails ErrBackendUnavailable.
func (b *MQTTBackend) Get(_ context.Context, key string) (Value, error) {
	b.mu.RLock()
	value, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return value, nil
	}
	if !b.client.IsConnected() {
		return Value{}, fmt.Errorf("%w: broker connection down and %q not cached", ErrBackendUnavailable, key)
	}
	return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Exists reports whether key is cached. Like Get, a miss is only
// authoritative while the broker connection is up.
func (b *MQTTBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	_, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return true, nil
	}
	if !b.client.IsConnected() {
		return false, fmt.Errorf("%w: broker connection down and %q not cached", ErrBackendUnavailable, key)
	}
	return false, nil
}

// Delete removes key from the cache and publishes an empty retained
// payload, which clears the broker's retained copy and tombstones the key
// on every other instance. Subscribers are not notified.
func (b *MQTTBackend) Delete(_ context.Context, key string) error {
	if err := validTopicKey(key); err != nil {
		return err
	}
	if !b.client.IsConnected() {
		return fmt.Errorf("%w: broker connection down", ErrBackendUnavailable)
	}

	b.mu.Lock()
	delete(b.cache, key)
	b.mu.Unlock()

	if err := b.client.Publish(b.topics.Global(key), nil, globalsQoS, true); err != nil {
		return fmt.Errorf("%w: clearing %q: %v", ErrBackendUnavailable, key, err)
	}
	return nil
}

// Subscribe registers callback for changes to key.
func (b *MQTTBackend) Subscribe(key string, callback Callback) error {
	if callback == nil {
		return ErrNilCallback
	}
	b.mu.Lock()
	b.subscribers[key] = append(b.subscribers[key], callback)
	b.mu.Unlock()
	return nil
}

// Unsubscribe removes every callback registered for key.
func (b *MQTTBackend) Unsubscribe(key string) error {
	b.mu.Lock()
	delete(b.subscribers, key)
	b.mu.Unlock()
	return nil
}

// Close drops the wildcard subscription. The borrowed client stays
// connected and retained values remain on the broker.
func (b *MQTTBackend) Close() error {
	if err := b.client.Unsubscribe(b.topics.AllGlobals()); err != nil {
		return fmt.Errorf("unsubscribing globals namespace: %w", err)
	}
	return nil
}

// handleMessage applies a broker message to the cache. Empty payloads are
// delete tombstones: the key is uncached without notifying subscribers.
func (b *MQTTBackend) handleMessage(topic string, payload []byte) error {
	key, ok := keyFromTopic(topic)
	if !ok {
		return nil
	}

	if len(payload) == 0 {
		b.mu.Lock()
		delete(b.cache, key)
		b.mu.Unlock()
		b.logger.Debug("global tombstoned by broker", "key", key)
		return nil
	}

	var value Value
	if err := json.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("decoding global %q: %w", key, err)
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()

	b.notify(key, value)
	return nil
}

func (b *MQTTBackend) notify(key string, value Value) {
	b.mu.RLock()
	callbacks := make([]Callback, len(b.subscribers[key]))
	copy(callbacks, b.subscribers[key])
	b.mu.RUnlock()

	for _, callback := range callbacks {
		callback(key, value)
	}
}

// validTopicKey rejects keys that would corrupt the topic namespace.
func validTopicKey(key string) error {
	if strings.ContainsAny(key, "#+") {
		return fmt.Errorf("%w: %q contains topic wildcard characters", ErrInvalidKey, key)
	}
	return nil
}

// keyFromTopic strips the globals prefix. Keys may contain slashes; the
// wildcard subscription matches every level below the prefix.
func keyFromTopic(topic string) (string, bool) {
	key, found := strings.CutPrefix(topic, mqtt.TopicPrefixGlobals+"/")
	if !found || key == "" {
		return "", false
	}
	return key, true
}
