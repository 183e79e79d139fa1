package action

import "time"

// DefaultDelay is used when a delay is constructed without a positive
// duration.
const DefaultDelay = time.Second

// Delay pauses the run for a fixed duration. Cancellation wakes it
// immediately and counts as success.
type Delay struct {
	node
	duration time.Duration
}

var _ Action = (*Delay)(nil)

// NewDelay creates a delay action. Durations of zero or below fall back to
// DefaultDelay.
func NewDelay(name, description, pluginID string, duration time.Duration) *Delay {
	if duration <= 0 {
		duration = DefaultDelay
	}
	return &Delay{
		node:     newNode(name, description, pluginID),
		duration: duration,
	}
}

// Duration returns the configured pause length.
func (d *Delay) Duration() time.Duration { return d.duration }

// CanExecute always reports true; waiting is never gated.
func (d *Delay) CanExecute(*ExecutionContext) bool { return true }

// Execute blocks until the duration elapses or the run is cancelled.
func (d *Delay) Execute(execCtx *ExecutionContext) error {
	timer := time.NewTimer(d.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-execCtx.Done():
	}
	return nil
}

// Clone returns a copy preserving the delay's id.
func (d *Delay) Clone() Action {
	clone := *d
	return &clone
}
