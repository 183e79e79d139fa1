package action

import (
	"context"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// VariableResolver supplies values for Variable conditions, typically backed
// by the globals store.
type VariableResolver interface {
	// Resolve returns the canonical text for name, or false when the
	// variable does not exist.
	Resolve(ctx context.Context, name string) (string, bool)
}

// ExecutionContext carries per-run state through an action tree: the trigger
// event (absent for manual runs), a cooperative cancellation signal and the
// variable resolver used by conditions.
//
// One ExecutionContext belongs to exactly one run. Configure it (resolver,
// trigger) before Execute starts; Cancel may be called from any goroutine.
type ExecutionContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	trigger  *event.Event
	resolver VariableResolver
}

// NewExecutionContext derives a cancellable execution context from parent.
// trigger may be nil for runs not started by an event.
func NewExecutionContext(parent context.Context, trigger *event.Event) *ExecutionContext {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	ec := &ExecutionContext{ctx: ctx, cancel: cancel}
	if trigger != nil {
		evt := *trigger
		ec.trigger = &evt
	}
	return ec
}

// Event returns the trigger event and whether one is present.
func (c *ExecutionContext) Event() (event.Event, bool) {
	if c.trigger == nil {
		return event.Event{}, false
	}
	return *c.trigger, true
}

// Context returns the underlying context for blocking calls made by
// behaviours.
func (c *ExecutionContext) Context() context.Context { return c.ctx }

// Cancel requests the run stop at its next cancellation point. Safe to call
// multiple times and from any goroutine.
func (c *ExecutionContext) Cancel() { c.cancel() }

// Cancelled reports whether the run has been cancelled or its parent context
// has expired.
func (c *ExecutionContext) Cancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Done exposes the cancellation channel for select loops.
func (c *ExecutionContext) Done() <-chan struct{} { return c.ctx.Done() }

// SetVariableResolver installs the resolver consulted by Variable conditions.
func (c *ExecutionContext) SetVariableResolver(r VariableResolver) { c.resolver = r }

// ResolveVariable looks name up through the configured resolver. Without a
// resolver every lookup misses.
func (c *ExecutionContext) ResolveVariable(name string) (string, bool) {
	if c.resolver == nil {
		return "", false
	}
	return c.resolver.Resolve(c.ctx, name)
}
