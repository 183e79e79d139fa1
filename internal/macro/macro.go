package macro

import (
	"time"

	"github.com/nerrad567/switchboard-core/internal/action"
	"github.com/nerrad567/switchboard-core/internal/event"
)

// Macro binds an event trigger to an action tree. When a dispatched event
// matches the trigger, the engine starts one run executing a clone of the
// tree; a macro may also be run manually regardless of its trigger.
type Macro struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description string `json:"description,omitempty"`

	// Configuration
	Enabled bool    `json:"enabled"`
	Trigger Trigger `json:"trigger"`

	// Root of the action tree executed per run. Built in code, so it never
	// crosses the wire.
	Root action.Action `json:"-"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trigger describes the events that start a macro. EventType is required;
// an empty Source or Payload matches any. Payload is compared against the
// event payload's canonical text rendering.
type Trigger struct {
	EventType event.Type `json:"event_type"`
	Source    string     `json:"source,omitempty"`
	Payload   string     `json:"payload,omitempty"`
}

// Matches reports whether evt satisfies the trigger. A zero trigger
// matches nothing, which makes a macro manual-only.
func (t Trigger) Matches(evt event.Event) bool {
	if t.EventType == "" || t.EventType != evt.Type {
		return false
	}
	if t.Source != "" && t.Source != evt.Source {
		return false
	}
	if t.Payload != "" && t.Payload != evt.Payload.Text() {
		return false
	}
	return true
}

// DeepCopy creates an independent copy of the macro. The action tree is
// cloned, so the copy can be executed without touching the original.
func (m *Macro) DeepCopy() *Macro {
	if m == nil {
		return nil
	}
	cpy := *m
	if m.Root != nil {
		cpy.Root = m.Root.Clone()
	}
	return &cpy
}

// RunStatus represents the state of a macro run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"    // Action tree surfaced an error
	StatusCancelled RunStatus = "cancelled" // Cancelled or timed out mid-run
)

// AllRunStatuses returns all valid run statuses.
func AllRunStatuses() []RunStatus {
	return []RunStatus{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}
}

// Valid reports whether s is a known run status.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Trigger kinds recorded on a run.
const (
	TriggerKindEvent  = "event"  // Started by a matching dispatched event
	TriggerKindManual = "manual" // Started explicitly via RunMacro
)

// Run tracks a single execution of a macro.
type Run struct {
	ID          string     `json:"id"`
	MacroID     string     `json:"macro_id"`
	MacroName   string     `json:"macro_name"`
	TriggeredAt time.Time  `json:"triggered_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TriggerKind string     `json:"trigger_kind"`
	Status      RunStatus  `json:"status"`

	// Triggering event identity (event-triggered runs only)
	EventID   *string `json:"event_id,omitempty"`
	EventType *string `json:"event_type,omitempty"`

	// Failure details (populated when the tree fails)
	FailedNodeID   *string `json:"failed_node_id,omitempty"`
	FailedNodeName *string `json:"failed_node_name,omitempty"`
	ErrorMsg       *string `json:"error_message,omitempty"`

	// Total run duration in milliseconds
	DurationMS *int `json:"duration_ms,omitempty"`
}
