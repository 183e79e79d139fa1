package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type categorises an event by its origin.
type Type string

const (
	// TypeSystem marks lifecycle events emitted by the host itself
	// (startup, shutdown, plugin state changes).
	TypeSystem Type = "system"

	// TypePlugin marks events emitted by a plugin's own machinery.
	TypePlugin Type = "plugin"

	// TypeUser marks events raised explicitly by a user action,
	// typically via the API or a macro.
	TypeUser Type = "user"

	// TypeInternal marks events used for engine-internal signalling.
	// They are dispatched like any other event but are not intended
	// for external consumers.
	TypeInternal Type = "internal"

	// TypeKeyPress marks keyboard or remote-control input events.
	TypeKeyPress Type = "keypress"
)

// AllTypes returns all valid event types.
func AllTypes() []Type {
	return []Type{TypeSystem, TypePlugin, TypeUser, TypeInternal, TypeKeyPress}
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case TypeSystem, TypePlugin, TypeUser, TypeInternal, TypeKeyPress:
		return true
	}
	return false
}

// PayloadKind identifies which variant a Payload holds.
type PayloadKind string

const (
	PayloadNone    PayloadKind = "none"
	PayloadText    PayloadKind = "text"
	PayloadNumber  PayloadKind = "number"
	PayloadFloat   PayloadKind = "float"
	PayloadBoolean PayloadKind = "boolean"
	PayloadCustom  PayloadKind = "custom"
)

// Payload is a tagged union carried by an event.
//
// Exactly one variant is populated. The zero value is the none variant.
// Payloads are immutable once constructed; accessors return copies, so a
// Payload may be shared between goroutines without synchronisation.
type Payload struct {
	kind    PayloadKind
	text    string
	number  int64
	float   float64
	boolean bool
	custom  json.RawMessage
}

// EmptyPayload returns the none variant.
func EmptyPayload() Payload {
	return Payload{kind: PayloadNone}
}

// TextPayload wraps a string value.
func TextPayload(s string) Payload {
	return Payload{kind: PayloadText, text: s}
}

// NumberPayload wraps an integer value.
func NumberPayload(n int64) Payload {
	return Payload{kind: PayloadNumber, number: n}
}

// FloatPayload wraps a floating-point value.
func FloatPayload(f float64) Payload {
	return Payload{kind: PayloadFloat, float: f}
}

// BooleanPayload wraps a boolean value.
func BooleanPayload(b bool) Payload {
	return Payload{kind: PayloadBoolean, boolean: b}
}

// CustomPayload wraps arbitrary JSON. The raw bytes are copied so the
// caller's buffer may be reused.
func CustomPayload(raw json.RawMessage) Payload {
	cpy := make(json.RawMessage, len(raw))
	copy(cpy, raw)
	return Payload{kind: PayloadCustom, custom: cpy}
}

// Kind returns the populated variant. The zero value reports PayloadNone.
func (p Payload) Kind() PayloadKind {
	if p.kind == "" {
		return PayloadNone
	}
	return p.kind
}

// IsEmpty reports whether the payload is the none variant.
func (p Payload) IsEmpty() bool {
	return p.Kind() == PayloadNone
}

// AsText returns the text value and true when the payload is text.
func (p Payload) AsText() (string, bool) {
	if p.kind != PayloadText {
		return "", false
	}
	return p.text, true
}

// AsNumber returns the integer value and true when the payload is a number.
func (p Payload) AsNumber() (int64, bool) {
	if p.kind != PayloadNumber {
		return 0, false
	}
	return p.number, true
}

// AsFloat returns the floating-point value and true when the payload is a float.
func (p Payload) AsFloat() (float64, bool) {
	if p.kind != PayloadFloat {
		return 0, false
	}
	return p.float, true
}

// AsBoolean returns the boolean value and true when the payload is a boolean.
func (p Payload) AsBoolean() (bool, bool) {
	if p.kind != PayloadBoolean {
		return false, false
	}
	return p.boolean, true
}

// AsCustom returns a copy of the raw JSON and true when the payload is
// the custom variant.
func (p Payload) AsCustom() (json.RawMessage, bool) {
	if p.kind != PayloadCustom {
		return nil, false
	}
	cpy := make(json.RawMessage, len(p.custom))
	copy(cpy, p.custom)
	return cpy, true
}

// Text renders the payload as a string for display, logging, condition
// evaluation and trigger matching. The none variant renders as the empty
// string, numbers and floats use their shortest decimal representation,
// booleans render as "true"/"false" and custom payloads render as their
// raw JSON.
func (p Payload) Text() string {
	switch p.kind {
	case PayloadText:
		return p.text
	case PayloadNumber:
		return strconv.FormatInt(p.number, 10)
	case PayloadFloat:
		return strconv.FormatFloat(p.float, 'f', -1, 64)
	case PayloadBoolean:
		return strconv.FormatBool(p.boolean)
	case PayloadCustom:
		return string(p.custom)
	default:
		return ""
	}
}

// payloadJSON is the wire envelope for a Payload.
type payloadJSON struct {
	Kind  PayloadKind     `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes the payload as {"kind": ..., "value": ...}.
// The none variant omits the value field entirely.
func (p Payload) MarshalJSON() ([]byte, error) {
	env := payloadJSON{Kind: p.Kind()}

	var err error
	switch p.kind {
	case PayloadText:
		env.Value, err = json.Marshal(p.text)
	case PayloadNumber:
		env.Value, err = json.Marshal(p.number)
	case PayloadFloat:
		env.Value, err = json.Marshal(p.float)
	case PayloadBoolean:
		env.Value, err = json.Marshal(p.boolean)
	case PayloadCustom:
		env.Value = p.custom
	}
	if err != nil {
		return nil, fmt.Errorf("encoding payload value: %w", err)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the {"kind": ..., "value": ...} envelope.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var env payloadJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Kind {
	case PayloadNone, "":
		*p = EmptyPayload()
	case PayloadText:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("%w: text value: %v", ErrInvalidPayload, err)
		}
		*p = TextPayload(s)
	case PayloadNumber:
		var n int64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return fmt.Errorf("%w: number value: %v", ErrInvalidPayload, err)
		}
		*p = NumberPayload(n)
	case PayloadFloat:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return fmt.Errorf("%w: float value: %v", ErrInvalidPayload, err)
		}
		*p = FloatPayload(f)
	case PayloadBoolean:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return fmt.Errorf("%w: boolean value: %v", ErrInvalidPayload, err)
		}
		*p = BooleanPayload(b)
	case PayloadCustom:
		if len(env.Value) == 0 || !json.Valid(env.Value) {
			return fmt.Errorf("%w: custom value is not valid JSON", ErrInvalidPayload)
		}
		*p = CustomPayload(env.Value)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, env.Kind)
	}
	return nil
}

// Event is an immutable record of something that happened.
//
// Source identifies the emitter, conventionally a plugin ID. Timestamps
// are always UTC.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   Payload   `json:"payload"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event with a generated ID and the current UTC time.
func New(eventType Type, payload Payload, source string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the event is well formed.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}
