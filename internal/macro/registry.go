package macro

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// Logger defines the logging interface used by the Registry and Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds all known macros in memory.
//
// Macros carry live action trees built from Go functions, so unlike run
// history they are never persisted; plugins and startup code register them
// on every boot. The registry hands out deep copies on every read, which
// means a macro fetched for execution is already an independent clone.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.RWMutex
	macros map[string]*Macro
	logger Logger
}

// NewRegistry creates an empty macro registry.
func NewRegistry() *Registry {
	return &Registry{
		macros: make(map[string]*Macro),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register validates and stores a new macro. An empty ID is filled in with
// a generated one, and both timestamps are set; the caller's macro is
// updated so it can learn the assigned identity.
func (r *Registry) Register(m *Macro) error {
	if err := ValidateMacro(m); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = GenerateID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.macros[m.ID]; exists {
		return fmt.Errorf("%w: %q", ErrMacroExists, m.ID)
	}
	r.macros[m.ID] = m.DeepCopy()

	r.logger.Info("macro registered", "id", m.ID, "name", m.Name, "enabled", m.Enabled)
	return nil
}

// Get retrieves a macro by ID.
// The returned macro is a deep copy; callers can safely modify it.
func (r *Registry) Get(id string) (*Macro, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.macros[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMacroNotFound, id)
	}
	return m.DeepCopy(), nil
}

// Update validates and replaces an existing macro. The original creation
// time is preserved and UpdatedAt is bumped.
func (r *Registry) Update(m *Macro) error {
	if err := ValidateMacro(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.macros[m.ID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMacroNotFound, m.ID)
	}

	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	r.macros[m.ID] = m.DeepCopy()

	r.logger.Info("macro updated", "id", m.ID, "name", m.Name)
	return nil
}

// Remove deletes a macro from the registry. Runs already started from it
// are unaffected; they execute their own clone of the tree.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.macros[id]; !ok {
		return fmt.Errorf("%w: %q", ErrMacroNotFound, id)
	}
	delete(r.macros, id)

	r.logger.Info("macro removed", "id", id)
	return nil
}

// Enable marks a macro as eligible for triggering.
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable stops a macro from triggering without removing it.
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.macros[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMacroNotFound, id)
	}
	if m.Enabled != enabled {
		m.Enabled = enabled
		m.UpdatedAt = time.Now().UTC()
	}

	r.logger.Info("macro toggled", "id", id, "enabled", enabled)
	return nil
}

// List retrieves all macros as deep copies, sorted by name for
// deterministic ordering.
func (r *Registry) List() []Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()

	macros := make([]Macro, 0, len(r.macros))
	for _, m := range r.macros {
		macros = append(macros, *m.DeepCopy())
	}
	sort.Slice(macros, func(i, j int) bool {
		return macros[i].Name < macros[j].Name
	})
	return macros
}

// Count returns the number of registered macros.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.macros)
}

// Matching returns deep copies of every enabled macro whose trigger
// matches evt. Each copy carries its own clone of the action tree, ready
// to execute.
func (r *Registry) Matching(evt event.Event) []*Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Macro
	for _, m := range r.macros {
		if m.Enabled && m.Trigger.Matches(evt) {
			matched = append(matched, m.DeepCopy())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})
	return matched
}
