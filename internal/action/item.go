package action

// Item is a leaf action wrapping a behaviour func. An optional gate predicate
// controls CanExecute; without one the item always reports executable.
type Item struct {
	node
	behaviour Behaviour
	gate      Gate
}

var _ Action = (*Item)(nil)

// NewItem creates a leaf action. behaviour may be nil for a no-op item.
func NewItem(name, description, pluginID string, behaviour Behaviour) *Item {
	return &Item{
		node:      newNode(name, description, pluginID),
		behaviour: behaviour,
	}
}

// SetGate installs the predicate consulted by CanExecute.
func (i *Item) SetGate(gate Gate) { i.gate = gate }

// CanExecute consults the gate, defaulting to true when none is set.
func (i *Item) CanExecute(execCtx *ExecutionContext) bool {
	if i.gate == nil {
		return true
	}
	return i.gate(execCtx)
}

// Execute invokes the behaviour. A failure is attributed to this item unless
// the behaviour already reported a more specific failing node.
func (i *Item) Execute(execCtx *ExecutionContext) error {
	if i.behaviour == nil {
		return nil
	}
	if err := i.behaviour(execCtx); err != nil {
		return failure(i, err)
	}
	return nil
}

// Clone returns a copy preserving the item's id. The behaviour and gate funcs
// are shared; they carry no mutable state of their own.
func (i *Item) Clone() Action {
	clone := *i
	return &clone
}
