package macro

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/switchboard-core/internal/action"
	"github.com/nerrad567/switchboard-core/internal/event"
)

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// RunJournal receives a measurement for every finished run, typically
// backed by the time-series store.
type RunJournal interface {
	RecordRun(macroID, macroName string, status RunStatus, duration time.Duration)
}

// DefaultRunTimeout is the hard limit for a single macro run. Even deep
// trees full of delays should complete well within this window. Prevents
// goroutine accumulation from runaway runs.
const DefaultRunTimeout = 60 * time.Second

// recordPersistTimeout bounds the write of a finished run record.
const recordPersistTimeout = 5 * time.Second

// Engine orchestrates macro runs.
//
// A run executes one clone of a macro's action tree on its own goroutine:
// runs never queue behind each other, and several runs of the same macro
// may be in flight at once. Every run is recorded through the repository
// (pending first, final state on completion) and announced on the
// WebSocket hub.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	registry *Registry
	repo     Repository
	hub      WSHub
	journal  RunJournal
	resolver action.VariableResolver
	logger   Logger

	timeout time.Duration

	mu   sync.Mutex
	runs map[string]*activeRun
	wg   sync.WaitGroup

	closed atomic.Bool
}

// activeRun pairs a running macro's identity with its cancellation handle.
type activeRun struct {
	macroID string
	cancel  func()
}

var _ event.MacroTrigger = (*Engine)(nil)

// NewEngine creates a new macro engine.
//
// Parameters:
//   - registry: Macro registry for trigger matching and lookups
//   - repo: Repository for persisting run records
//   - hub: WebSocket hub for broadcasting run events (may be nil)
//   - journal: Time-series sink for run measurements (may be nil)
//   - logger: Logger instance
func NewEngine(registry *Registry, repo Repository, hub WSHub, journal RunJournal, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry: registry,
		repo:     repo,
		hub:      hub,
		journal:  journal,
		logger:   logger,
		timeout:  DefaultRunTimeout,
		runs:     make(map[string]*activeRun),
	}
}

// SetVariableResolver installs the resolver handed to every run's execution
// context. Configure before the first run starts.
func (e *Engine) SetVariableResolver(r action.VariableResolver) {
	e.resolver = r
}

// SetRunTimeout overrides DefaultRunTimeout. Configure before the first
// run starts.
func (e *Engine) SetRunTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// TriggerMacros starts one run for every enabled macro whose trigger
// matches evt. It returns as soon as the runs are launched, never waiting
// for them to finish.
//
// TriggerMacros implements event.MacroTrigger.
func (e *Engine) TriggerMacros(_ context.Context, evt event.Event) {
	if e.closed.Load() {
		return
	}
	for _, m := range e.registry.Matching(evt) {
		if runID, ok := e.startRun(m, &evt, TriggerKindEvent); ok {
			e.logger.Debug("macro triggered",
				"macro_id", m.ID,
				"macro_name", m.Name,
				"run_id", runID,
				"event_id", evt.ID,
				"event_type", evt.Type,
			)
		}
	}
}

// RunMacro starts a manual run of a macro, bypassing its trigger. It
// returns the run ID immediately; the run itself executes asynchronously.
//
// Returns:
//   - ErrEngineClosed if the engine has been closed
//   - ErrMacroNotFound if no macro has the given ID
//   - ErrMacroDisabled if the macro is disabled
func (e *Engine) RunMacro(_ context.Context, id string) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}
	m, err := e.registry.Get(id)
	if err != nil {
		return "", err
	}
	if !m.Enabled {
		return "", ErrMacroDisabled
	}
	runID, ok := e.startRun(m, nil, TriggerKindManual)
	if !ok {
		return "", ErrEngineClosed
	}
	return runID, nil
}

// startRun registers and launches one run of m, which must already be a
// private clone. Reports false when the engine closed before the run could
// be registered.
func (e *Engine) startRun(m *Macro, trigger *event.Event, kind string) (string, bool) {
	run := &Run{
		ID:          GenerateID(),
		MacroID:     m.ID,
		MacroName:   m.Name,
		TriggeredAt: time.Now().UTC(),
		TriggerKind: kind,
		Status:      StatusPending,
	}
	if trigger != nil {
		eventID := trigger.ID
		eventType := string(trigger.Type)
		run.EventID = &eventID
		run.EventType = &eventType
	}

	// Runs outlive the dispatch that started them, so the run context
	// derives from Background rather than from the trigger's context.
	runCtx, cancelTimeout := context.WithTimeout(context.Background(), e.timeout)
	execCtx := action.NewExecutionContext(runCtx, trigger)
	if e.resolver != nil {
		execCtx.SetVariableResolver(e.resolver)
	}

	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		cancelTimeout()
		return "", false
	}
	e.runs[run.ID] = &activeRun{macroID: m.ID, cancel: execCtx.Cancel}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer cancelTimeout()
		e.execute(m, run, execCtx)
	}()

	return run.ID, true
}

// execute drives one run from pending to its final state.
func (e *Engine) execute(m *Macro, run *Run, execCtx *action.ExecutionContext) {
	// Persist initial run record
	if createErr := e.repo.CreateRun(execCtx.Context(), run); createErr != nil {
		e.logger.Error("failed to create run record", "error", createErr)
		// Keep going; executing the macro matters more than the journal row
	}

	started := time.Now().UTC()
	run.StartedAt = &started
	run.Status = StatusRunning

	e.logger.Info("macro run started",
		"macro_id", run.MacroID,
		"macro_name", run.MacroName,
		"run_id", run.ID,
		"trigger_kind", run.TriggerKind,
	)
	if e.hub != nil {
		e.hub.Broadcast("macro.run_started", map[string]any{
			"run_id":       run.ID,
			"macro_id":     run.MacroID,
			"macro_name":   run.MacroName,
			"trigger_kind": run.TriggerKind,
		})
	}

	err := m.Root.Execute(execCtx)

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	duration := int(completedAt.Sub(started).Milliseconds())
	run.DurationMS = &duration

	// The action tree swallows cancellation (actions return nil when the
	// run context ends), so a cancelled run is detected from the context,
	// not from the returned error.
	switch {
	case err != nil:
		run.Status = StatusFailed
		var actionErr *action.Error
		if errors.As(err, &actionErr) {
			nodeID := actionErr.ActionID
			nodeName := actionErr.ActionName
			run.FailedNodeID = &nodeID
			run.FailedNodeName = &nodeName
		}
		msg := err.Error()
		run.ErrorMsg = &msg
	case execCtx.Cancelled():
		run.Status = StatusCancelled
	default:
		run.Status = StatusCompleted
	}

	e.mu.Lock()
	delete(e.runs, run.ID)
	e.mu.Unlock()

	// The run context may already be cancelled or expired here; the final
	// record is persisted on its own context.
	persistCtx, cancel := context.WithTimeout(context.Background(), recordPersistTimeout)
	defer cancel()
	if updateErr := e.repo.UpdateRun(persistCtx, run); updateErr != nil {
		e.logger.Error("failed to update run record", "error", updateErr)
	}

	e.logger.Info("macro run complete",
		"macro_id", run.MacroID,
		"run_id", run.ID,
		"status", run.Status,
		"duration_ms", duration,
	)

	if e.hub != nil {
		e.hub.Broadcast("macro.run_completed", map[string]any{
			"run_id":      run.ID,
			"macro_id":    run.MacroID,
			"macro_name":  run.MacroName,
			"status":      string(run.Status),
			"duration_ms": duration,
		})
	}
	if e.journal != nil {
		e.journal.RecordRun(run.MacroID, run.MacroName, run.Status, completedAt.Sub(started))
	}
}

// CancelRun requests cancellation of a single active run. The run moves to
// the cancelled state once it reaches its next cancellation point.
func (e *Engine) CancelRun(id string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	ar, ok := e.runs[id]
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	ar.cancel()

	e.logger.Info("macro run cancellation requested", "run_id", id, "macro_id", ar.macroID)
	return nil
}

// CancelAll requests cancellation of every active run and returns how many
// were signalled.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	n := len(e.runs)
	for _, ar := range e.runs {
		ar.cancel()
	}
	e.mu.Unlock()

	if n > 0 {
		e.logger.Info("all macro runs cancelled", "count", n)
	}
	return n
}

// ActiveRunCount returns the number of runs currently executing.
func (e *Engine) ActiveRunCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

// ActiveRuns returns the IDs of the runs currently executing, sorted for
// deterministic output.
func (e *Engine) ActiveRuns() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close cancels every active run and waits for their goroutines to finish.
// Further triggers and manual runs are rejected. Safe to call more than
// once.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.CancelAll()
	e.wg.Wait()
	e.logger.Info("macro engine closed")
}
