package globals

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindBoolean Kind = "boolean"
	KindBinary  Kind = "binary"
	KindJSON    Kind = "json"
)

// AllKinds returns all valid value kinds.
func AllKinds() []Kind {
	return []Kind{KindString, KindInteger, KindFloat, KindBoolean, KindBinary, KindJSON}
}

// Valid reports whether k is a known value kind.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindBoolean, KindBinary, KindJSON:
		return true
	}
	return false
}

// Value is a tagged union stored under a global key.
//
// Exactly one variant is populated. Values are immutable once constructed
// and accessors return copies, so a Value may be cached and shared between
// goroutines without synchronisation. The zero Value holds no variant and
// cannot be stored; construct values through the typed constructors.
type Value struct {
	kind    Kind
	str     string
	integer int64
	float   float64
	boolean bool
	binary  []byte
	raw     json.RawMessage
}

// StringValue wraps a string.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// IntegerValue wraps an integer.
func IntegerValue(n int64) Value {
	return Value{kind: KindInteger, integer: n}
}

// FloatValue wraps a floating-point number.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, float: f}
}

// BooleanValue wraps a boolean.
func BooleanValue(b bool) Value {
	return Value{kind: KindBoolean, boolean: b}
}

// BinaryValue wraps an opaque byte slice. The bytes are copied so the
// caller's buffer may be reused.
func BinaryValue(data []byte) Value {
	cpy := make([]byte, len(data))
	copy(cpy, data)
	return Value{kind: KindBinary, binary: cpy}
}

// JSONValue wraps an arbitrary JSON document. The raw bytes are copied.
func JSONValue(raw json.RawMessage) Value {
	cpy := make(json.RawMessage, len(raw))
	copy(cpy, raw)
	return Value{kind: KindJSON, raw: cpy}
}

// Kind returns the populated variant. The zero Value reports "".
func (v Value) Kind() Kind {
	return v.kind
}

// AsString returns the string and true when the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsInteger returns the integer and true when the value is an integer.
func (v Value) AsInteger() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.integer, true
}

// AsFloat returns the float and true when the value is a float.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.float, true
}

// AsBoolean returns the boolean and true when the value is a boolean.
func (v Value) AsBoolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.boolean, true
}

// AsBinary returns a copy of the bytes and true when the value is binary.
func (v Value) AsBinary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	cpy := make([]byte, len(v.binary))
	copy(cpy, v.binary)
	return cpy, true
}

// AsJSON returns a copy of the raw document and true when the value is JSON.
func (v Value) AsJSON() (json.RawMessage, bool) {
	if v.kind != KindJSON {
		return nil, false
	}
	cpy := make(json.RawMessage, len(v.raw))
	copy(cpy, v.raw)
	return cpy, true
}

// Text renders the value as a string for display, logging and condition
// evaluation. Numbers use their shortest decimal representation, booleans
// render as "true"/"false", binary renders as standard base64 and JSON
// renders as the raw document. The zero Value renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindFloat:
		return strconv.FormatFloat(v.float, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindBinary:
		return base64.StdEncoding.EncodeToString(v.binary)
	case KindJSON:
		return string(v.raw)
	default:
		return ""
	}
}

// valueJSON is the wire envelope shared by the MQTT and Redis backends.
type valueJSON struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"kind": ..., "value": ...}. Binary
// values encode their bytes as a base64 JSON string. The zero Value has
// no variant to encode and returns an error.
func (v Value) MarshalJSON() ([]byte, error) {
	env := valueJSON{Kind: v.kind}

	var err error
	switch v.kind {
	case KindString:
		env.Value, err = json.Marshal(v.str)
	case KindInteger:
		env.Value, err = json.Marshal(v.integer)
	case KindFloat:
		env.Value, err = json.Marshal(v.float)
	case KindBoolean:
		env.Value, err = json.Marshal(v.boolean)
	case KindBinary:
		env.Value, err = json.Marshal(v.binary)
	case KindJSON:
		env.Value = v.raw
	default:
		return nil, fmt.Errorf("%w: no variant populated", ErrInvalidValue)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the {"kind": ..., "value": ...} envelope.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	switch env.Kind {
	case KindString:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("%w: string value: %v", ErrInvalidValue, err)
		}
		*v = StringValue(s)
	case KindInteger:
		var n int64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return fmt.Errorf("%w: integer value: %v", ErrInvalidValue, err)
		}
		*v = IntegerValue(n)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return fmt.Errorf("%w: float value: %v", ErrInvalidValue, err)
		}
		*v = FloatValue(f)
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return fmt.Errorf("%w: boolean value: %v", ErrInvalidValue, err)
		}
		*v = BooleanValue(b)
	case KindBinary:
		var raw []byte
		if err := json.Unmarshal(env.Value, &raw); err != nil {
			return fmt.Errorf("%w: binary value: %v", ErrInvalidValue, err)
		}
		*v = Value{kind: KindBinary, binary: raw}
	case KindJSON:
		if len(env.Value) == 0 || !json.Valid(env.Value) {
			return fmt.Errorf("%w: json value is not a valid document", ErrInvalidValue)
		}
		*v = JSONValue(env.Value)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidValue, env.Kind)
	}
	return nil
}
