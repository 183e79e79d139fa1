package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger defines the logging interface used by the Dispatcher.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler consumes dispatched events.
//
// SupportedTypes narrows delivery to the listed types; a nil or empty
// slice means the handler receives every event. HandleEvent must be safe
// for concurrent use because handlers run on their own goroutines and
// Submit may be called from multiple goroutines.
type Handler interface {
	// Name returns the unique handler name used for registration.
	Name() string

	// SupportedTypes lists the event types this handler wants.
	SupportedTypes() []Type

	// HandleEvent processes a single event.
	HandleEvent(ctx context.Context, evt Event) error
}

// MacroTrigger receives every submitted event after handler delivery.
// Implemented by the macro engine to start matching macro runs.
type MacroTrigger interface {
	// TriggerMacros evaluates the event against macro triggers and
	// starts runs for those that match. It must not block.
	TriggerMacros(ctx context.Context, evt Event)
}

// HandlerFailure records a single handler's error during dispatch.
type HandlerFailure struct {
	HandlerName string `json:"handler"`
	Err         error  `json:"-"`
	ErrorMsg    string `json:"error"`
}

// Dispatcher delivers submitted events to registered handlers and then
// to the macro trigger.
//
// Handlers run concurrently, one goroutine each, launched in registration
// order; Submit waits for every handler to finish. A handler failure or
// panic is recorded and never affects the other handlers.
//
// Thread Safety: all methods are safe for concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	trigger  MacroTrigger
	logger   Logger
	closed   atomic.Bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{logger: noopLogger{}}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger != nil {
		d.logger = logger
	}
}

// SetMacroTrigger installs the macro trigger invoked after handler
// delivery. Passing nil detaches the current trigger.
func (d *Dispatcher) SetMacroTrigger(trigger MacroTrigger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trigger = trigger
}

// RegisterHandler adds a handler to the delivery list.
//
// Returns:
//   - ErrDispatcherClosed if Close has been called
//   - ErrNilHandler if handler is nil
//   - ErrInvalidHandlerName if the handler reports an empty name
//   - ErrDuplicateHandler if the name is already registered
func (d *Dispatcher) RegisterHandler(handler Handler) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}
	if handler == nil {
		return ErrNilHandler
	}
	name := handler.Name()
	if name == "" {
		return ErrInvalidHandlerName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.handlers {
		if existing.Name() == name {
			return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
		}
	}
	d.handlers = append(d.handlers, handler)

	d.logger.Debug("event handler registered", "handler", name, "count", len(d.handlers))
	return nil
}

// UnregisterHandler removes a handler by name.
// Returns ErrHandlerNotFound if no handler with that name is registered.
func (d *Dispatcher) UnregisterHandler(name string) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, existing := range d.handlers {
		if existing.Name() == name {
			d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
			d.logger.Debug("event handler unregistered", "handler", name, "count", len(d.handlers))
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
}

// HandlerCount returns the number of registered handlers.
func (d *Dispatcher) HandlerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// HandlerNames returns the registered handler names in registration order.
func (d *Dispatcher) HandlerNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		names[i] = h.Name()
	}
	return names
}

// Submit delivers an event to every registered handler that supports its
// type, then hands the event to the macro trigger.
//
// Handler goroutines are launched in registration order and joined before
// Submit returns. Each handler failure is isolated: it is logged, recorded
// in the returned slice and never stops the other handlers. The returned
// failures preserve registration order; an empty slice means every handler
// succeeded.
//
// Parameters:
//   - ctx: Context passed through to handlers and the macro trigger
//   - evt: The event to deliver
//
// Returns:
//   - []HandlerFailure: per-handler failures in registration order
//   - error: ErrDispatcherClosed after Close, ErrUnsupportedType for an
//     unknown event type
func (d *Dispatcher) Submit(ctx context.Context, evt Event) ([]HandlerFailure, error) {
	if d.closed.Load() {
		return nil, ErrDispatcherClosed
	}
	if !evt.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, evt.Type)
	}

	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	trigger := d.trigger
	logger := d.logger
	d.mu.RUnlock()

	// Results are indexed by registration position so the failure slice
	// keeps registration order regardless of completion order.
	results := make([]error, len(handlers))
	var wg sync.WaitGroup

	for i, handler := range handlers {
		if !supportsType(handler, evt.Type) {
			continue
		}
		wg.Add(1)
		go func(idx int, h Handler) {
			defer wg.Done()
			results[idx] = deliver(ctx, h, evt)
		}(i, handler)
	}
	wg.Wait()

	var failures []HandlerFailure
	for i, err := range results {
		if err == nil {
			continue
		}
		logger.Warn("event handler failed",
			"handler", handlers[i].Name(),
			"event_id", evt.ID,
			"event_type", string(evt.Type),
			"error", err,
		)
		failures = append(failures, HandlerFailure{
			HandlerName: handlers[i].Name(),
			Err:         err,
			ErrorMsg:    err.Error(),
		})
	}

	logger.Debug("event dispatched",
		"event_id", evt.ID,
		"event_type", string(evt.Type),
		"source", evt.Source,
		"handlers", len(handlers),
		"failures", len(failures),
	)

	if trigger != nil {
		trigger.TriggerMacros(ctx, evt)
	}
	return failures, nil
}

// Close marks the dispatcher as closed. Subsequent Submit and handler
// registration calls fail with ErrDispatcherClosed. In-flight Submit
// calls complete normally.
func (d *Dispatcher) Close() {
	if d.closed.CompareAndSwap(false, true) {
		d.mu.RLock()
		logger := d.logger
		d.mu.RUnlock()
		logger.Info("event dispatcher closed")
	}
}

// deliver invokes a single handler, converting a panic into an error so
// one misbehaving handler cannot take down the dispatch loop.
func deliver(ctx context.Context, handler Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, evt)
}

// supportsType reports whether the handler wants events of type t.
// An empty supported list means all types.
func supportsType(handler Handler, t Type) bool {
	supported := handler.SupportedTypes()
	if len(supported) == 0 {
		return true
	}
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}
