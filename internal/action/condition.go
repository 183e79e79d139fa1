package action

import (
	"strconv"
	"strings"
)

// ConditionType selects where a condition reads its left-hand value from.
type ConditionType string

const (
	// ConditionEventPayload compares the trigger event's payload rendered
	// as canonical text.
	ConditionEventPayload ConditionType = "event_payload"
	// ConditionEventType compares the trigger event's type.
	ConditionEventType ConditionType = "event_type"
	// ConditionEventSource compares the trigger event's source.
	ConditionEventSource ConditionType = "event_source"
	// ConditionVariable compares a value resolved by name through the
	// run's VariableResolver.
	ConditionVariable ConditionType = "variable"
	// ConditionConstant compares the condition's own Value field.
	ConditionConstant ConditionType = "constant"
)

// AllConditionTypes returns every valid condition type.
func AllConditionTypes() []ConditionType {
	return []ConditionType{
		ConditionEventPayload,
		ConditionEventType,
		ConditionEventSource,
		ConditionVariable,
		ConditionConstant,
	}
}

// Valid reports whether t is a known condition type.
func (t ConditionType) Valid() bool {
	switch t {
	case ConditionEventPayload, ConditionEventType, ConditionEventSource,
		ConditionVariable, ConditionConstant:
		return true
	}
	return false
}

// Comparison is the operator applied between the condition's left-hand value
// and its Reference. Ordered comparisons try numeric comparison first and
// fall back to lexicographic ordering when either side does not parse.
type Comparison string

const (
	CompareEqual          Comparison = "equal"
	CompareNotEqual       Comparison = "not_equal"
	CompareContains       Comparison = "contains"
	CompareStartsWith     Comparison = "starts_with"
	CompareEndsWith       Comparison = "ends_with"
	CompareGreaterThan    Comparison = "greater_than"
	CompareLessThan       Comparison = "less_than"
	CompareGreaterOrEqual Comparison = "greater_or_equal"
	CompareLessOrEqual    Comparison = "less_or_equal"
)

// AllComparisons returns every valid comparison operator.
func AllComparisons() []Comparison {
	return []Comparison{
		CompareEqual,
		CompareNotEqual,
		CompareContains,
		CompareStartsWith,
		CompareEndsWith,
		CompareGreaterThan,
		CompareLessThan,
		CompareGreaterOrEqual,
		CompareLessOrEqual,
	}
}

// Valid reports whether c is a known comparison operator.
func (c Comparison) Valid() bool {
	switch c {
	case CompareEqual, CompareNotEqual, CompareContains, CompareStartsWith,
		CompareEndsWith, CompareGreaterThan, CompareLessThan,
		CompareGreaterOrEqual, CompareLessOrEqual:
		return true
	}
	return false
}

// Condition is a declarative predicate evaluated against a run's context.
// Type selects the left-hand value, Comparison relates it to Reference.
// Value names the variable for ConditionVariable and holds the literal
// left-hand side for ConditionConstant; other types ignore it.
type Condition struct {
	Type       ConditionType `json:"type"`
	Value      string        `json:"value,omitempty"`
	Comparison Comparison    `json:"comparison"`
	Reference  string        `json:"reference"`
}

// Evaluate resolves the left-hand value and applies the comparison. Unknown
// types and operators evaluate to false, as does any event-derived condition
// on a run without a trigger event.
func (c Condition) Evaluate(execCtx *ExecutionContext) bool {
	lhs := c.leftHand(execCtx)

	switch c.Comparison {
	case CompareEqual:
		return lhs == c.Reference
	case CompareNotEqual:
		return lhs != c.Reference
	case CompareContains:
		return strings.Contains(lhs, c.Reference)
	case CompareStartsWith:
		return strings.HasPrefix(lhs, c.Reference)
	case CompareEndsWith:
		return strings.HasSuffix(lhs, c.Reference)
	case CompareGreaterThan:
		return compareOrdered(lhs, c.Reference) > 0
	case CompareLessThan:
		return compareOrdered(lhs, c.Reference) < 0
	case CompareGreaterOrEqual:
		return compareOrdered(lhs, c.Reference) >= 0
	case CompareLessOrEqual:
		return compareOrdered(lhs, c.Reference) <= 0
	default:
		return false
	}
}

func (c Condition) leftHand(execCtx *ExecutionContext) string {
	switch c.Type {
	case ConditionEventPayload:
		if evt, ok := execCtx.Event(); ok {
			return evt.Payload.Text()
		}
		return ""
	case ConditionEventType:
		if evt, ok := execCtx.Event(); ok {
			return string(evt.Type)
		}
		return ""
	case ConditionEventSource:
		if evt, ok := execCtx.Event(); ok {
			return evt.Source
		}
		return ""
	case ConditionVariable:
		if v, ok := execCtx.ResolveVariable(c.Value); ok {
			return v
		}
		return ""
	case ConditionConstant:
		return c.Value
	default:
		return ""
	}
}

// compareOrdered returns -1, 0 or 1 relating lhs to rhs. Both sides parsing
// as floats compare numerically, otherwise lexicographically.
func compareOrdered(lhs, rhs string) int {
	lf, lerr := strconv.ParseFloat(lhs, 64)
	rf, rerr := strconv.ParseFloat(rhs, 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(lhs, rhs)
}
