package globals

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/mqtt"
)

// fakeBroker satisfies MQTTClient and records all traffic. deliver injects
// a message as if the broker had forwarded it to the wildcard subscription.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	published    []brokerMessage
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
}

type brokerMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return errors.New("fake broker: not connected")
	}
	f.published = append(f.published, brokerMessage{
		topic:    topic,
		payload:  append([]byte(nil), payload...),
		qos:      qos,
		retained: retained,
	})
	return nil
}

func (f *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topic)
	delete(f.handlers, topic)
	return nil
}

func (f *fakeBroker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBroker) setConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

// deliver feeds a message through the wildcard handler, returning whatever
// the handler returns.
func (f *fakeBroker) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[mqtt.Topics{}.AllGlobals()]
	f.mu.Unlock()
	if !ok {
		t.Fatal("no wildcard subscription registered")
	}
	return handler(topic, payload)
}

func (f *fakeBroker) publishes() []brokerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]brokerMessage(nil), f.published...)
}

func setupMQTTBackend(t *testing.T) (*MQTTBackend, *fakeBroker) {
	t.Helper()
	broker := newFakeBroker()
	backend, err := NewMQTTBackend(broker)
	if err != nil {
		t.Fatalf("NewMQTTBackend: %v", err)
	}
	return backend, broker
}

// ─── Publish Path ───────────────────────────────────────────────────────────

func TestMQTTBackend_SetPublishesRetainedEnvelope(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "scene", StringValue("movie-night")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	published := broker.publishes()
	if len(published) != 1 {
		t.Fatalf("published %d messages, want 1", len(published))
	}
	msg := published[0]
	if msg.topic != "switchboard/globals/scene" {
		t.Errorf("topic = %q, want switchboard/globals/scene", msg.topic)
	}
	if !msg.retained {
		t.Error("global values must be published retained")
	}
	if msg.qos != 1 {
		t.Errorf("qos = %d, want 1", msg.qos)
	}
	if got := string(msg.payload); got != `{"kind":"string","value":"movie-night"}` {
		t.Errorf("payload = %s", got)
	}

	// Reads come straight from the cache.
	value, err := backend.Get(ctx, "scene")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s, ok := value.AsString(); !ok || s != "movie-night" {
		t.Errorf("cached value = (%q, %v), want (movie-night, true)", s, ok)
	}
}

func TestMQTTBackend_SetNotifiesSubscribers(t *testing.T) {
	backend, _ := setupMQTTBackend(t)
	ctx := context.Background()

	calls := 0
	if err := backend.Subscribe("scene", func(string, Value) { calls++ }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := backend.Set(ctx, "scene", StringValue("dinner")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestMQTTBackend_NestedKeys(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "zones/upstairs/temp", FloatValue(19.5)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	published := broker.publishes()
	if published[0].topic != "switchboard/globals/zones/upstairs/temp" {
		t.Errorf("topic = %q", published[0].topic)
	}
}

func TestMQTTBackend_WildcardKeysRejected(t *testing.T) {
	backend, _ := setupMQTTBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "bad#key", StringValue("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set: error = %v, want ErrInvalidKey", err)
	}
	if err := backend.Delete(ctx, "bad+key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Delete: error = %v, want ErrInvalidKey", err)
	}
}

// ─── Broker Message Path ────────────────────────────────────────────────────

func TestMQTTBackend_IncomingMessageWarmsCache(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	var notified []Value
	if err := backend.Subscribe("brightness", func(_ string, value Value) {
		notified = append(notified, value)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	payload := []byte(`{"kind":"integer","value":80}`)
	if err := broker.deliver(t, "switchboard/globals/brightness", payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	value, err := backend.Get(ctx, "brightness")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n, ok := value.AsInteger(); !ok || n != 80 {
		t.Errorf("value = (%v, %v), want (80, true)", n, ok)
	}
	if len(notified) != 1 {
		t.Errorf("callback ran %d times, want 1", len(notified))
	}
}

func TestMQTTBackend_EmptyPayloadTombstones(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	calls := 0
	if err := backend.Subscribe("scene", func(string, Value) { calls++ }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := backend.Set(ctx, "scene", StringValue("reading")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := broker.deliver(t, "switchboard/globals/scene", nil); err != nil {
		t.Fatalf("deliver tombstone: %v", err)
	}

	if _, err := backend.Get(ctx, "scene"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after tombstone: error = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1 (set only, tombstones are silent)", calls)
	}
}

func TestMQTTBackend_MalformedEnvelopeIgnored(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	err := broker.deliver(t, "switchboard/globals/broken", []byte(`{not json`))
	if err == nil {
		t.Error("handler should surface the decode error for client-side logging")
	}

	if _, err := backend.Get(ctx, "broken"); !errors.Is(err, ErrNotFound) {
		t.Errorf("malformed envelope must not populate the cache: %v", err)
	}
}

func TestMQTTBackend_ForeignTopicIgnored(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	if err := broker.deliver(t, "switchboard/status/core", []byte(`{}`)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := backend.Get(ctx, "core"); !errors.Is(err, ErrNotFound) {
		t.Errorf("status topic must not leak into globals: %v", err)
	}
}

// ─── Delete ─────────────────────────────────────────────────────────────────

func TestMQTTBackend_DeleteClearsRetained(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "scene", StringValue("reading")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := backend.Delete(ctx, "scene"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	published := broker.publishes()
	if len(published) != 2 {
		t.Fatalf("published %d messages, want 2", len(published))
	}
	tombstone := published[1]
	if len(tombstone.payload) != 0 {
		t.Errorf("delete payload = %q, want empty", tombstone.payload)
	}
	if !tombstone.retained {
		t.Error("delete must be retained to clear the broker copy")
	}

	if _, err := backend.Get(ctx, "scene"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: error = %v, want ErrNotFound", err)
	}
}

// ─── Connectivity ───────────────────────────────────────────────────────────

func TestMQTTBackend_DisconnectedWritesFail(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	broker.setConnected(false)

	if err := backend.Set(ctx, "scene", StringValue("x")); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Set: error = %v, want ErrBackendUnavailable", err)
	}
	if err := backend.Delete(ctx, "scene"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Delete: error = %v, want ErrBackendUnavailable", err)
	}
}

func TestMQTTBackend_DisconnectedReadsServeCache(t *testing.T) {
	backend, broker := setupMQTTBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "scene", StringValue("reading")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	broker.setConnected(false)

	value, err := backend.Get(ctx, "scene")
	if err != nil {
		t.Fatalf("cached read while disconnected: %v", err)
	}
	if s, _ := value.AsString(); s != "reading" {
		t.Errorf("value = %q, want reading", s)
	}

	exists, err := backend.Exists(ctx, "scene")
	if err != nil || !exists {
		t.Errorf("Exists() = (%v, %v), want (true, nil)", exists, err)
	}

	// A miss is indeterminate without the broker.
	if _, err := backend.Get(ctx, "unknown"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("uncached read while disconnected: error = %v, want ErrBackendUnavailable", err)
	}
	if _, err := backend.Exists(ctx, "unknown"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("uncached Exists while disconnected: error = %v, want ErrBackendUnavailable", err)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

func TestMQTTBackend_CloseDropsSubscription(t *testing.T) {
	backend, broker := setupMQTTBackend(t)

	if err := backend.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wildcard := mqtt.Topics{}.AllGlobals()
	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.unsubscribed) != 1 || broker.unsubscribed[0] != wildcard {
		t.Errorf("unsubscribed = %v, want %q", broker.unsubscribed, wildcard)
	}
}

func TestMQTTBackend_ThroughStore(t *testing.T) {
	backend, _ := setupMQTTBackend(t)
	store := NewStore(backend)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	if err := store.SetBoolean(ctx, "armed", true); err != nil {
		t.Fatalf("SetBoolean: %v", err)
	}
	got, err := store.GetBoolean(ctx, "armed")
	if err != nil || !got {
		t.Errorf("GetBoolean() = (%v, %v), want (true, nil)", got, err)
	}
	if _, err := store.GetString(ctx, "armed"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetString on boolean key: error = %v, want ErrTypeMismatch", err)
	}
}
