// Package action provides the composable action tree for Switchboard Core.
//
// Actions are the executable half of a macro: a tree of nodes that runs when
// a trigger fires. Leaves perform work (an Item wrapping a behaviour func),
// interior nodes shape control flow (sequential groups, delays, conditionals
// and bounded loops).
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                 Action tree (one per run)               │
//	│                                                         │
//	│   Group ──▶ Item ──▶ Delay ──▶ Conditional ──▶ ...      │
//	│     │                              │                    │
//	│     │                    ┌─────────┴────────┐           │
//	│     │                    ▼                  ▼           │
//	│     │                 then branch       else branch     │
//	│     ▼                                                   │
//	│   WhileLoop / ForLoop ──▶ body (any Action)             │
//	│                                                         │
//	│   ExecutionContext threads through every node:          │
//	│   trigger event + cancellation + variable resolver      │
//	└─────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Action: Common contract (identity, CanExecute, Execute, Clone)
//   - Item: Leaf wrapping a Behaviour func with an optional Gate
//   - Group: Ordered children, first failure aborts
//   - Delay: Timed pause that cancellation wakes immediately
//   - Conditional: Declarative Condition selecting a then/else branch
//   - WhileLoop / ForLoop: Iteration bounded against runaway conditions
//   - ExecutionContext: Trigger event + cooperative cancellation per run
//
// # Cancellation
//
// Cancellation is cooperative and always counts as success. Groups check
// between children, loops before every iteration, delays wake from their
// timer. A cancelled run never reports an error; real failures surface as
// *Error values naming the failing node.
//
// # Thread Safety
//
// Trees are built once and must not be mutated while executing. Each run
// should execute its own Clone; clones share no mutable state, so any number
// of runs of the same macro can proceed concurrently.
//
// # Usage
//
//	notify := action.NewItem("notify", "publish alert", pluginID, func(ec *action.ExecutionContext) error {
//	    return publishAlert(ec.Context())
//	})
//	tree := action.NewGroup("alert sequence", "", pluginID,
//	    notify,
//	    action.NewDelay("settle", "", pluginID, 2*time.Second),
//	)
//
//	execCtx := action.NewExecutionContext(ctx, &evt)
//	err := tree.Clone().Execute(execCtx)
package action
