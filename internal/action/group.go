package action

// Group executes its children strictly in order. The first failure aborts the
// remainder and propagates, attributed to the failing child; cancellation
// observed between children stops the group successfully.
//
// Children are exclusively owned: the same Action value must not appear in
// two groups except via Clone.
type Group struct {
	node
	children []Action
}

var _ Action = (*Group)(nil)

// NewGroup creates a group with the given children.
func NewGroup(name, description, pluginID string, children ...Action) *Group {
	g := &Group{node: newNode(name, description, pluginID)}
	g.Add(children...)
	return g
}

// Add appends children in execution order.
func (g *Group) Add(children ...Action) {
	g.children = append(g.children, children...)
}

// Remove deletes the child with the given id, reporting whether one matched.
func (g *Group) Remove(id string) bool {
	for idx, child := range g.children {
		if child.ID() == id {
			g.children = append(g.children[:idx], g.children[idx+1:]...)
			return true
		}
	}
	return false
}

// Children returns the ordered children. The slice is a copy; the children
// themselves are not.
func (g *Group) Children() []Action {
	out := make([]Action, len(g.children))
	copy(out, g.children)
	return out
}

// Len returns the number of direct children.
func (g *Group) Len() int { return len(g.children) }

// CanExecute reports true when any child can execute. An empty group cannot.
func (g *Group) CanExecute(execCtx *ExecutionContext) bool {
	for _, child := range g.children {
		if child.CanExecute(execCtx) {
			return true
		}
	}
	return false
}

// Execute runs every child in order, stopping at the first failure or at
// cancellation. Cancellation is success; a child failure propagates with the
// failing child named.
func (g *Group) Execute(execCtx *ExecutionContext) error {
	for _, child := range g.children {
		if execCtx.Cancelled() {
			return nil
		}
		if err := child.Execute(execCtx); err != nil {
			return failure(child, err)
		}
	}
	return nil
}

// Clone deep-copies the group and every child, preserving ids.
func (g *Group) Clone() Action {
	clone := *g
	clone.children = make([]Action, len(g.children))
	for idx, child := range g.children {
		clone.children[idx] = child.Clone()
	}
	return &clone
}
