package plugin

import (
	"context"
	"testing"
)

// ─── Base Tests ─────────────────────────────────────────────────────────────

func TestBase_Identity(t *testing.T) {
	b := NewBase("{11111111-2222-3333-4444-555555555555}", "Demo", "A demo plugin")

	if b.ID() != "{11111111-2222-3333-4444-555555555555}" {
		t.Errorf("ID() = %q", b.ID())
	}
	if b.Name() != "Demo" {
		t.Errorf("Name() = %q, want Demo", b.Name())
	}
	if b.Description() != "A demo plugin" {
		t.Errorf("Description() = %q", b.Description())
	}
}

func TestBase_HooksAreNoOps(t *testing.T) {
	b := NewBase("id", "n", "d")
	ctx := context.Background()

	if err := b.Initialize(ctx); err != nil {
		t.Errorf("Initialize: %v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Errorf("Start: %v", err)
	}
	if err := b.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestBase_ConfigDefaultsEmpty(t *testing.T) {
	b := NewBase("id", "n", "d")

	cfg := b.Config()
	if cfg == nil {
		t.Fatal("Config() = nil, want empty map")
	}
	if len(cfg) != 0 {
		t.Errorf("Config() has %d keys, want 0", len(cfg))
	}
}

func TestBase_UpdateConfigReplaces(t *testing.T) {
	b := NewBase("id", "n", "d")

	if err := b.UpdateConfig(Config{"host": "a", "port": 1}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if err := b.UpdateConfig(Config{"host": "b"}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg := b.Config()
	if cfg["host"] != "b" {
		t.Errorf("host = %v, want b", cfg["host"])
	}
	// Replace, not merge: the old port key must be gone.
	if _, ok := cfg["port"]; ok {
		t.Error("port survived a full replace")
	}
}

func TestBase_ConfigIsolation(t *testing.T) {
	b := NewBase("id", "n", "d")

	in := Config{
		"name":   "original",
		"nested": map[string]any{"level": 1},
		"list":   []any{"a", "b"},
	}
	if err := b.UpdateConfig(in); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	// Mutating the input after the update must not affect stored config.
	in["name"] = "mutated"
	in["nested"].(map[string]any)["level"] = 99
	in["list"].([]any)[0] = "z"

	cfg := b.Config()
	if cfg["name"] != "original" {
		t.Errorf("name = %v, want original", cfg["name"])
	}
	if cfg["nested"].(map[string]any)["level"] != 1 {
		t.Errorf("nested.level = %v, want 1", cfg["nested"].(map[string]any)["level"])
	}
	if cfg["list"].([]any)[0] != "a" {
		t.Errorf("list[0] = %v, want a", cfg["list"].([]any)[0])
	}

	// Mutating a returned copy must not affect stored config either.
	cfg["name"] = "changed"
	cfg["nested"].(map[string]any)["level"] = 42

	again := b.Config()
	if again["name"] != "original" {
		t.Errorf("name = %v after copy mutation, want original", again["name"])
	}
	if again["nested"].(map[string]any)["level"] != 1 {
		t.Errorf("nested.level = %v after copy mutation, want 1", again["nested"].(map[string]any)["level"])
	}
}

func TestBase_ConfigValue(t *testing.T) {
	b := NewBase("id", "n", "d")
	_ = b.UpdateConfig(Config{"interval": 30})

	v, ok := b.ConfigValue("interval")
	if !ok {
		t.Fatal("ConfigValue(interval) reported false")
	}
	if v != 30 {
		t.Errorf("interval = %v, want 30", v)
	}

	if _, ok := b.ConfigValue("missing"); ok {
		t.Error("ConfigValue(missing) reported true")
	}
}

// ─── Config Clone Tests ─────────────────────────────────────────────────────

func TestConfig_Clone(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var c Config
		if c.Clone() != nil {
			t.Error("Clone of nil should be nil")
		}
	})

	t.Run("deep", func(t *testing.T) {
		c := Config{"outer": map[string]any{"inner": []any{1, 2}}}
		cpy := c.Clone()

		cpy["outer"].(map[string]any)["inner"].([]any)[0] = 99
		if c["outer"].(map[string]any)["inner"].([]any)[0] != 1 {
			t.Error("clone shares nested slice with original")
		}
	})
}

// ─── Reserved ID Tests ──────────────────────────────────────────────────────

func TestIsReservedID(t *testing.T) {
	for _, id := range ReservedIDs() {
		if !IsReservedID(id) {
			t.Errorf("IsReservedID(%q) = false", id)
		}
	}

	notReserved := []string{
		"",
		"{00000000-0000-0000-0000-000000000000}",
		"9D499A2C-72B6-40B0-8C8C-995831B10BB4", // Missing braces
		"my-plugin",
	}
	for _, id := range notReserved {
		if IsReservedID(id) {
			t.Errorf("IsReservedID(%q) = true", id)
		}
	}
}

// ─── State Tests ────────────────────────────────────────────────────────────

func TestState_Valid(t *testing.T) {
	for _, s := range AllStates() {
		if !s.Valid() {
			t.Errorf("Valid() = false for %q", s)
		}
	}
	if State("loading").Valid() {
		t.Error("Valid() = true for unknown state")
	}
	if State("").Valid() {
		t.Error("Valid() = true for empty state")
	}
}
