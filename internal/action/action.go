package action

import "github.com/google/uuid"

// Action is the contract every tree node satisfies.
//
// Nodes carry stable identity (the id survives Clone), a gate check and an
// execution entry point. Execute returns nil on success and on observed
// cancellation; real failures are *Error values matching ErrExecutionFailed.
type Action interface {
	// ID returns the node's unique identifier.
	ID() string

	// Name returns the human-readable node name.
	Name() string

	// Description returns the node description, possibly empty.
	Description() string

	// PluginID identifies the plugin that owns this action.
	PluginID() string

	// CanExecute reports whether the node would do anything for the given
	// context. It must not perform work or mutate state.
	CanExecute(execCtx *ExecutionContext) bool

	// Execute runs the node. Cancellation observed through execCtx stops
	// work and returns nil.
	Execute(execCtx *ExecutionContext) error

	// Clone returns a deep copy sharing no mutable state with the
	// original. IDs are preserved.
	Clone() Action
}

// Behaviour is the work an Item performs when executed.
type Behaviour func(execCtx *ExecutionContext) error

// Gate decides whether an Item may execute for the given context.
type Gate func(execCtx *ExecutionContext) bool

// node holds the identity fields shared by every action variant.
type node struct {
	id          string
	name        string
	description string
	pluginID    string
}

func newNode(name, description, pluginID string) node {
	return node{
		id:          uuid.New().String(),
		name:        name,
		description: description,
		pluginID:    pluginID,
	}
}

func (n node) ID() string          { return n.id }
func (n node) Name() string        { return n.name }
func (n node) Description() string { return n.description }
func (n node) PluginID() string    { return n.pluginID }
