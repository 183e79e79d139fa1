// Package globals provides shared state for macros and plugins: a typed
// key/value store with change subscriptions and pluggable persistence.
//
// A Store wraps one Backend:
//
//	LocalBackend  in-process map, exactly-once notification, no persistence
//	MQTTBackend   retained broker messages, shared across instances
//	RedisBackend  Redis keys plus pub/sub change channels
//
// Values are tagged unions (string, integer, float, boolean, binary, JSON).
// Typed getters enforce the stored kind strictly: reading an integer key
// with GetString fails with ErrTypeMismatch rather than coercing. Writes
// may replace a key's value with one of a different kind at any time.
//
// Subscriptions are per-key. The networked backends deliver at-least-once,
// since a locally written change is observed again when it loops back
// through the broker; LocalBackend delivers exactly once. Unsubscribe
// removes every callback for the key in one call.
//
//	store := globals.NewStore(globals.NewLocalBackend())
//	defer store.Close()
//
//	store.Subscribe("scene/livingroom", func(key string, value globals.Value) {
//	    log.Printf("%s changed to %s", key, value.Text())
//	})
//	store.SetString(ctx, "scene/livingroom", "movie-night")
package globals
