package globals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	// redisKeyPrefix namespaces stored values.
	redisKeyPrefix = "switchboard:globals:"

	// redisEventPrefix namespaces the change channels. Every instance
	// pattern-subscribes to redisEventPrefix + "*".
	redisEventPrefix = "switchboard:globals:__events:"
)

// RedisBackend shares globals between instances through Redis. Values live
// as envelope JSON under switchboard:globals:<key>; every write also
// publishes the envelope on the key's change channel so peer caches stay
// warm without polling.
//
// Reads are served from a local cache and fall through to Redis on a miss.
// Subscribers are notified synchronously on local Set and again when the
// published change loops back through the pattern subscription, so delivery
// is at-least-once.
type RedisBackend struct {
	client     *redis.Client
	ownsClient bool
	logger     Logger

	mu          sync.RWMutex
	cache       map[string]Value
	subscribers map[string][]Callback

	pubsub *redis.PubSub
	done   chan struct{}
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to Redis at address and returns a backend that
// owns the connection; Close tears it down. The context bounds the initial
// ping and subscription handshake.
func NewRedisBackend(ctx context.Context, address, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	b, err := newRedisBackend(ctx, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	b.ownsClient = true
	return b, nil
}

// NewRedisBackendFromClient wraps an existing client. The client is
// borrowed; Close stops the change listener but leaves the client open.
func NewRedisBackendFromClient(ctx context.Context, client *redis.Client) (*RedisBackend, error) {
	return newRedisBackend(ctx, client)
}

func newRedisBackend(ctx context.Context, client *redis.Client) (*RedisBackend, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	b := &RedisBackend{
		client:      client,
		logger:      noopLogger{},
		cache:       make(map[string]Value),
		subscribers: make(map[string][]Callback),
		done:        make(chan struct{}),
	}

	b.pubsub = client.PSubscribe(context.Background(), redisEventPrefix+"*")

	// Wait for the subscription confirmation so no change published after
	// this constructor returns can be missed.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		b.pubsub.Close()
		return nil, fmt.Errorf("%w: subscribing to change channels: %v", ErrBackendUnavailable, err)
	}

	go b.listen()
	return b, nil
}

// SetLogger installs a logger for backend activity. A nil logger is ignored.
func (b *RedisBackend) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Set caches value, writes it to Redis, publishes the change, then notifies
// local subscribers.
func (b *RedisBackend) Set(ctx context.Context, key string, value Value) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding global %q: %w", key, err)
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()

	pipe := b.client.Pipeline()
	pipe.Set(ctx, redisKeyPrefix+key, payload, 0)
	pipe.Publish(ctx, redisEventPrefix+key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: writing %q: %v", ErrBackendUnavailable, key, err)
	}

	b.notify(key, value)
	return nil
}

// Get serves key from the cache, falling through to Redis on a miss. A
// fetched value is cached for subsequent reads.
func (b *RedisBackend) Get(ctx context.Context, key string) (Value, error) {
	b.mu.RLock()
	cached, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return cached, nil
	}

	payload, err := b.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return Value{}, fmt.Errorf("%w: reading %q: %v", ErrBackendUnavailable, key, err)
	}

	var value Value
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return Value{}, fmt.Errorf("%w: stored envelope for %q: %v", ErrInvalidValue, key, err)
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()
	return value, nil
}

// Exists reports whether key is cached or present in Redis.
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	_, ok := b.cache[key]
	b.mu.RUnlock()
	if ok {
		return true, nil
	}

	n, err := b.client.Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: checking %q: %v", ErrBackendUnavailable, key, err)
	}
	return n > 0, nil
}

// Delete uncaches key, removes it from Redis and publishes a tombstone so
// peer caches drop it too. Subscribers are not notified.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.cache, key)
	b.mu.Unlock()

	pipe := b.client.Pipeline()
	pipe.Del(ctx, redisKeyPrefix+key)
	pipe.Publish(ctx, redisEventPrefix+key, "")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: deleting %q: %v", ErrBackendUnavailable, key, err)
	}
	return nil
}

// Subscribe registers callback for changes to key.
func (b *RedisBackend) Subscribe(key string, callback Callback) error {
	if callback == nil {
		return ErrNilCallback
	}
	b.mu.Lock()
	b.subscribers[key] = append(b.subscribers[key], callback)
	b.mu.Unlock()
	return nil
}

// Unsubscribe removes every callback registered for key.
func (b *RedisBackend) Unsubscribe(key string) error {
	b.mu.Lock()
	delete(b.subscribers, key)
	b.mu.Unlock()
	return nil
}

// Close stops the change listener, waits for it to drain, and closes the
// client when this backend owns it. Values stored in Redis survive.
func (b *RedisBackend) Close() error {
	err := b.pubsub.Close()
	<-b.done

	if b.ownsClient {
		if cerr := b.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing redis backend: %w", err)
	}
	return nil
}

// listen applies published changes to the cache until the pubsub closes.
// Empty and JSON null payloads are delete tombstones: the key is uncached
// without notifying subscribers.
func (b *RedisBackend) listen() {
	defer close(b.done)

	for msg := range b.pubsub.Channel() {
		key, found := strings.CutPrefix(msg.Channel, redisEventPrefix)
		if !found || key == "" {
			continue
		}

		if msg.Payload == "" || msg.Payload == "null" {
			b.mu.Lock()
			delete(b.cache, key)
			b.mu.Unlock()
			continue
		}

		var value Value
		if err := json.Unmarshal([]byte(msg.Payload), &value); err != nil {
			b.logger.Warn("discarding malformed global change", "channel", msg.Channel, "error", err)
			continue
		}

		b.mu.Lock()
		b.cache[key] = value
		b.mu.Unlock()

		b.notify(key, value)
	}
}

func (b *RedisBackend) notify(key string, value Value) {
	b.mu.RLock()
	callbacks := make([]Callback, len(b.subscribers[key]))
	copy(callbacks, b.subscribers[key])
	b.mu.RUnlock()

	for _, callback := range callbacks {
		callback(key, value)
	}
}
