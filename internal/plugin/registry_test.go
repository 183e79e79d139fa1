package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// ─── Test Plugin ────────────────────────────────────────────────────────────

// testPlugin embeds Base and lets tests inject hook failures and count
// hook invocations.
type testPlugin struct {
	Base

	mu         sync.Mutex
	initCalls  int
	startCalls int
	stopCalls  int
	initErr    error
	startErr   error
	stopErr    error
	rejectCfg  error
}

func newTestPlugin(id string) *testPlugin {
	return &testPlugin{Base: NewBase(id, "Test "+id, "test plugin")}
}

func (p *testPlugin) Initialize(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initCalls++
	return p.initErr
}

func (p *testPlugin) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
	return p.startErr
}

func (p *testPlugin) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls++
	return p.stopErr
}

func (p *testPlugin) UpdateConfig(cfg Config) error {
	p.mu.Lock()
	rejectErr := p.rejectCfg
	p.mu.Unlock()
	if rejectErr != nil {
		return rejectErr
	}
	return p.Base.UpdateConfig(cfg)
}

func (p *testPlugin) calls() (int, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initCalls, p.startCalls, p.stopCalls
}

// mustState is a test helper asserting the registry reports want for id.
func mustState(t *testing.T, r *Registry, id string, want State) {
	t.Helper()
	got, err := r.State(id)
	if err != nil {
		t.Fatalf("State(%s): %v", id, err)
	}
	if got != want {
		t.Fatalf("State(%s) = %q, want %q", id, got, want)
	}
}

// ─── Registration Tests ─────────────────────────────────────────────────────

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	p := newTestPlugin("plugin-a")
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Registration never invokes hooks.
	if init, start, stop := p.calls(); init+start+stop != 0 {
		t.Errorf("hooks invoked during registration: init=%d start=%d stop=%d", init, start, stop)
	}
	mustState(t, r, "plugin-a", StateInitialized)

	t.Run("nil plugin", func(t *testing.T) {
		if err := r.Register(nil); !errors.Is(err, ErrNilPlugin) {
			t.Errorf("expected ErrNilPlugin, got: %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		if err := r.Register(newTestPlugin("")); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got: %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := r.Register(newTestPlugin("plugin-a"))
		if !errors.Is(err, ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got: %v", err)
		}
		// Rejection leaves the registry unchanged.
		if r.Count() != 1 {
			t.Errorf("Count() = %d after rejected duplicate, want 1", r.Count())
		}
		got, err := r.Get("plugin-a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != Plugin(p) {
			t.Error("original plugin replaced by rejected duplicate")
		}
	})

	t.Run("reserved id", func(t *testing.T) {
		err := r.Register(newTestPlugin(CorePluginID))
		if !errors.Is(err, ErrReservedID) {
			t.Errorf("expected ErrReservedID, got: %v", err)
		}
		if r.Count() != 1 {
			t.Errorf("Count() = %d after rejected reserved id, want 1", r.Count())
		}
	})

	t.Run("builtin may use reserved id", func(t *testing.T) {
		if err := r.RegisterBuiltin(newTestPlugin(SystemPluginID)); err != nil {
			t.Errorf("RegisterBuiltin: %v", err)
		}
		mustState(t, r, SystemPluginID, StateInitialized)
	})
}

// ─── Lifecycle Tests ────────────────────────────────────────────────────────

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	p := newTestPlugin("plugin-a")
	_ = r.Register(p)
	ctx := context.Background()

	if err := r.Initialize(ctx, "plugin-a"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	mustState(t, r, "plugin-a", StateInitialized)

	if err := r.Start(ctx, "plugin-a"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustState(t, r, "plugin-a", StateRunning)

	if err := r.Stop(ctx, "plugin-a"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	mustState(t, r, "plugin-a", StateStopped)

	// Stopped plugins can be restarted.
	if err := r.Start(ctx, "plugin-a"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	mustState(t, r, "plugin-a", StateRunning)

	if err := r.Stop(ctx, "plugin-a"); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if err := r.Unload(ctx, "plugin-a"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if _, err := r.Get("plugin-a"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound after unload, got: %v", err)
	}

	init, start, stop := p.calls()
	if init != 1 || start != 2 || stop != 2 {
		t.Errorf("hook calls = init=%d start=%d stop=%d, want 1/2/2", init, start, stop)
	}
}

func TestRegistry_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(r *Registry)           // Bring plugin-a into the starting state
		attempt func(r *Registry) error     // The illegal operation
	}{
		{
			name:    "initialize running",
			prepare: func(r *Registry) { _ = r.Start(ctx, "plugin-a") },
			attempt: func(r *Registry) error { return r.Initialize(ctx, "plugin-a") },
		},
		{
			name:    "stop initialized",
			prepare: func(*Registry) {},
			attempt: func(r *Registry) error { return r.Stop(ctx, "plugin-a") },
		},
		{
			name: "stop stopped",
			prepare: func(r *Registry) {
				_ = r.Start(ctx, "plugin-a")
				_ = r.Stop(ctx, "plugin-a")
			},
			attempt: func(r *Registry) error { return r.Stop(ctx, "plugin-a") },
		},
		{
			name:    "start running",
			prepare: func(r *Registry) { _ = r.Start(ctx, "plugin-a") },
			attempt: func(r *Registry) error { return r.Start(ctx, "plugin-a") },
		},
		{
			name:    "unload initialized",
			prepare: func(*Registry) {},
			attempt: func(r *Registry) error { return r.Unload(ctx, "plugin-a") },
		},
		{
			name:    "unload running",
			prepare: func(r *Registry) { _ = r.Start(ctx, "plugin-a") },
			attempt: func(r *Registry) error { return r.Unload(ctx, "plugin-a") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_ = r.Register(newTestPlugin("plugin-a"))
			tt.prepare(r)

			if err := tt.attempt(r); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got: %v", err)
			}
		})
	}
}

func TestRegistry_UnknownPlugin(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	ops := map[string]func() error{
		"Initialize": func() error { return r.Initialize(ctx, "ghost") },
		"Start":      func() error { return r.Start(ctx, "ghost") },
		"Stop":       func() error { return r.Stop(ctx, "ghost") },
		"Unload":     func() error { return r.Unload(ctx, "ghost") },
		"UpdateConfig": func() error {
			return r.UpdateConfig("ghost", Config{})
		},
	}

	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("%s: expected ErrPluginNotFound, got: %v", name, err)
		}
	}

	if _, err := r.State("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("State: expected ErrPluginNotFound, got: %v", err)
	}
	if _, err := r.Get("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get: expected ErrPluginNotFound, got: %v", err)
	}
	if _, err := r.Config("ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Config: expected ErrPluginNotFound, got: %v", err)
	}
}

// ─── Hook Failure Tests ─────────────────────────────────────────────────────

func TestRegistry_HookFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("initialize failure", func(t *testing.T) {
		r := NewRegistry()
		p := newTestPlugin("plugin-a")
		p.initErr = errors.New("no licence file")
		_ = r.Register(p)

		err := r.Initialize(ctx, "plugin-a")
		if !errors.Is(err, ErrHookFailure) {
			t.Fatalf("expected ErrHookFailure, got: %v", err)
		}
		mustState(t, r, "plugin-a", StateErrored)
	})

	t.Run("start failure", func(t *testing.T) {
		r := NewRegistry()
		p := newTestPlugin("plugin-a")
		p.startErr = errors.New("port in use")
		_ = r.Register(p)

		err := r.Start(ctx, "plugin-a")
		if !errors.Is(err, ErrHookFailure) {
			t.Fatalf("expected ErrHookFailure, got: %v", err)
		}
		mustState(t, r, "plugin-a", StateErrored)

		// Errored never recovers: a retry is an invalid transition,
		// and the hook must not run again.
		if err := r.Start(ctx, "plugin-a"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("retry: expected ErrInvalidTransition, got: %v", err)
		}
		if _, start, _ := p.calls(); start != 1 {
			t.Errorf("start hook ran %d times, want 1", start)
		}
	})

	t.Run("stop failure", func(t *testing.T) {
		r := NewRegistry()
		p := newTestPlugin("plugin-a")
		p.stopErr = errors.New("flush failed")
		_ = r.Register(p)
		_ = r.Start(ctx, "plugin-a")

		err := r.Stop(ctx, "plugin-a")
		if !errors.Is(err, ErrHookFailure) {
			t.Fatalf("expected ErrHookFailure, got: %v", err)
		}
		mustState(t, r, "plugin-a", StateErrored)
	})

	t.Run("errored can be unloaded", func(t *testing.T) {
		r := NewRegistry()
		p := newTestPlugin("plugin-a")
		p.startErr = errors.New("boom")
		_ = r.Register(p)
		_ = r.Start(ctx, "plugin-a")
		mustState(t, r, "plugin-a", StateErrored)

		if err := r.Unload(ctx, "plugin-a"); err != nil {
			t.Fatalf("Unload from errored: %v", err)
		}

		// The ID is free again.
		if err := r.Register(newTestPlugin("plugin-a")); err != nil {
			t.Errorf("re-register after unload: %v", err)
		}
	})
}

// ─── Config Tests ───────────────────────────────────────────────────────────

func TestRegistry_Config(t *testing.T) {
	r := NewRegistry()
	p := newTestPlugin("plugin-a")
	_ = r.Register(p)

	if err := r.UpdateConfig("plugin-a", Config{"interval": 5}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg, err := r.Config("plugin-a")
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg["interval"] != 5 {
		t.Errorf("interval = %v, want 5", cfg["interval"])
	}
}

func TestRegistry_UpdateConfig_Rejected(t *testing.T) {
	r := NewRegistry()
	p := newTestPlugin("plugin-a")
	_ = r.Register(p)
	_ = r.UpdateConfig("plugin-a", Config{"interval": 5})

	p.mu.Lock()
	p.rejectCfg = errors.New("interval must be positive")
	p.mu.Unlock()

	err := r.UpdateConfig("plugin-a", Config{"interval": -1})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}

	// The previous configuration is retained.
	cfg, cfgErr := r.Config("plugin-a")
	if cfgErr != nil {
		t.Fatalf("Config: %v", cfgErr)
	}
	if cfg["interval"] != 5 {
		t.Errorf("interval = %v after rejected update, want 5", cfg["interval"])
	}
}

// ─── Listing Tests ──────────────────────────────────────────────────────────

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_ = r.Register(newTestPlugin("charlie"))
	_ = r.Register(newTestPlugin("alpha"))
	_ = r.Register(newTestPlugin("bravo"))
	_ = r.Start(ctx, "alpha")

	infos := r.List()
	if len(infos) != 3 {
		t.Fatalf("List() returned %d plugins, want 3", len(infos))
	}

	wantOrder := []string{"alpha", "bravo", "charlie"}
	for i, want := range wantOrder {
		if infos[i].ID != want {
			t.Errorf("List()[%d].ID = %q, want %q", i, infos[i].ID, want)
		}
	}

	if infos[0].State != StateRunning {
		t.Errorf("alpha state = %q, want running", infos[0].State)
	}
	if infos[1].State != StateInitialized {
		t.Errorf("bravo state = %q, want initialized", infos[1].State)
	}
	if infos[0].Name != "Test alpha" {
		t.Errorf("alpha name = %q", infos[0].Name)
	}
}

// ─── Concurrency Tests ──────────────────────────────────────────────────────

func TestRegistry_ConcurrentTransitions(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	const plugins = 8
	for i := range plugins {
		_ = r.Register(newTestPlugin(fmt.Sprintf("plugin-%d", i)))
	}

	// Hammer each plugin with start/stop cycles from several goroutines.
	// Transitions are serialised per plugin, so every plugin must end in
	// a coherent state with no panics.
	var wg sync.WaitGroup
	for i := range plugins {
		id := fmt.Sprintf("plugin-%d", i)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 25 {
					_ = r.Start(ctx, id)
					_ = r.Stop(ctx, id)
				}
			}()
		}
	}
	wg.Wait()

	for i := range plugins {
		id := fmt.Sprintf("plugin-%d", i)
		state, err := r.State(id)
		if err != nil {
			t.Fatalf("State(%s): %v", id, err)
		}
		if state != StateRunning && state != StateStopped {
			t.Errorf("plugin %s ended in %q, want running or stopped", id, state)
		}
	}
}
