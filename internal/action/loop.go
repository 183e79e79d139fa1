package action

import "fmt"

// maxIterations bounds every loop so a condition that never turns false
// cannot wedge a run. Exceeding it is an execution failure.
const maxIterations = 10000

// WhileLoop executes its body while a condition holds. The condition and
// cancellation are checked before every iteration; cancellation is success,
// exhausting the iteration bound is a failure.
type WhileLoop struct {
	node
	condition Condition
	body      Action
	limit     int
}

var _ Action = (*WhileLoop)(nil)

// NewWhileLoop creates a while loop with the default iteration bound.
// body may be nil, in which case iterations only re-evaluate the condition.
func NewWhileLoop(name, description, pluginID string, condition Condition, body Action) *WhileLoop {
	return &WhileLoop{
		node:      newNode(name, description, pluginID),
		condition: condition,
		body:      body,
		limit:     maxIterations,
	}
}

// SetMaxIterations replaces the iteration bound. Values below one are
// ignored.
func (w *WhileLoop) SetMaxIterations(n int) {
	if n > 0 {
		w.limit = n
	}
}

// CanExecute always reports true; the condition is consulted per iteration.
func (w *WhileLoop) CanExecute(*ExecutionContext) bool { return true }

// Execute loops until the condition turns false, the run is cancelled or the
// iteration bound is exhausted.
func (w *WhileLoop) Execute(execCtx *ExecutionContext) error {
	iterations := 0
	for {
		if execCtx.Cancelled() {
			return nil
		}
		if !w.condition.Evaluate(execCtx) {
			return nil
		}
		if iterations >= w.limit {
			return &Error{
				ActionID:   w.id,
				ActionName: w.name,
				Err:        fmt.Errorf("condition still true after %d iterations", w.limit),
			}
		}
		iterations++

		if w.body == nil {
			continue
		}
		if err := w.body.Execute(execCtx); err != nil {
			return failure(w.body, err)
		}
	}
}

// Clone deep-copies the loop and its body, preserving ids.
func (w *WhileLoop) Clone() Action {
	clone := *w
	if w.body != nil {
		clone.body = w.body.Clone()
	}
	return &clone
}

// ForLoop executes its body over a counted range: from start towards end
// (exclusive) in increments of step. Until configured otherwise it counts
// 0 through 9.
type ForLoop struct {
	node
	start int64
	end   int64
	step  int64
	body  Action
}

var _ Action = (*ForLoop)(nil)

// NewForLoop creates a counted loop with the default range 0..10 step 1.
func NewForLoop(name, description, pluginID string, body Action) *ForLoop {
	return &ForLoop{
		node:  newNode(name, description, pluginID),
		start: 0,
		end:   10,
		step:  1,
		body:  body,
	}
}

// SetRange replaces the loop bounds. The end is exclusive in the direction
// of travel; a negative step counts downwards. A zero step is rejected.
func (f *ForLoop) SetRange(start, end, step int64) error {
	if step == 0 {
		return ErrZeroStep
	}
	f.start = start
	f.end = end
	f.step = step
	return nil
}

// Range returns the configured start, end and step.
func (f *ForLoop) Range() (start, end, step int64) {
	return f.start, f.end, f.step
}

// CanExecute always reports true.
func (f *ForLoop) CanExecute(*ExecutionContext) bool { return true }

// Execute counts through the range, checking cancellation before every
// iteration. The shared iteration bound guards ranges too large to be
// intentional.
func (f *ForLoop) Execute(execCtx *ExecutionContext) error {
	iterations := 0
	for current := f.start; f.continues(current); current += f.step {
		if execCtx.Cancelled() {
			return nil
		}
		if iterations >= maxIterations {
			return &Error{
				ActionID:   f.id,
				ActionName: f.name,
				Err:        fmt.Errorf("range not exhausted after %d iterations", maxIterations),
			}
		}
		iterations++

		if f.body == nil {
			continue
		}
		if err := f.body.Execute(execCtx); err != nil {
			return failure(f.body, err)
		}
	}
	return nil
}

func (f *ForLoop) continues(current int64) bool {
	if f.step > 0 {
		return current < f.end
	}
	return current > f.end
}

// Clone deep-copies the loop and its body, preserving ids.
func (f *ForLoop) Clone() Action {
	clone := *f
	if f.body != nil {
		clone.body = f.body.Clone()
	}
	return &clone
}
