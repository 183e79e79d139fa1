package action

// Conditional evaluates a declarative condition and executes one of two
// branches. A false condition without an else branch is a successful no-op.
type Conditional struct {
	node
	condition  Condition
	action     Action
	elseAction Action
}

var _ Action = (*Conditional)(nil)

// NewConditional creates a conditional wrapping the action executed when the
// condition holds.
func NewConditional(name, description, pluginID string, condition Condition, wrapped Action) *Conditional {
	return &Conditional{
		node:      newNode(name, description, pluginID),
		condition: condition,
		action:    wrapped,
	}
}

// SetElse installs the branch executed when the condition is false.
func (c *Conditional) SetElse(a Action) { c.elseAction = a }

// Condition returns the predicate this conditional evaluates.
func (c *Conditional) Condition() Condition { return c.condition }

// CanExecute mirrors the condition's outcome for the given context.
func (c *Conditional) CanExecute(execCtx *ExecutionContext) bool {
	return c.condition.Evaluate(execCtx)
}

// Execute evaluates the condition once and runs the matching branch. Branch
// failures propagate attributed to the branch's failing node.
func (c *Conditional) Execute(execCtx *ExecutionContext) error {
	branch := c.action
	if !c.condition.Evaluate(execCtx) {
		branch = c.elseAction
	}
	if branch == nil {
		return nil
	}
	if err := branch.Execute(execCtx); err != nil {
		return failure(branch, err)
	}
	return nil
}

// Clone deep-copies the conditional and both branches, preserving ids.
func (c *Conditional) Clone() Action {
	clone := *c
	if c.action != nil {
		clone.action = c.action.Clone()
	}
	if c.elseAction != nil {
		clone.elseAction = c.elseAction.Clone()
	}
	return &clone
}
