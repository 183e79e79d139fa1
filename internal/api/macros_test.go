package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/switchboard-core/internal/action"
	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/macro"
)

// registerBlockingMacro adds an enabled macro whose run blocks until the
// returned channel is closed.
func registerBlockingMacro(t *testing.T, srv *Server, name string) (*macro.Macro, chan struct{}) {
	t.Helper()

	release := make(chan struct{})
	m := &macro.Macro{
		Name:    name,
		Enabled: true,
		Trigger: macro.Trigger{EventType: event.TypeInternal, Source: "never"},
		// Returns nil on cancellation, matching the action convention: the
		// engine detects cancelled runs from the context, not the error.
		Root: action.NewItem("wait", "", "", func(execCtx *action.ExecutionContext) error {
			select {
			case <-release:
				return nil
			case <-execCtx.Done():
				return nil
			}
		}),
	}
	if err := srv.macros.Register(m); err != nil {
		t.Fatalf("Register macro: %v", err)
	}
	return m, release
}

// waitForActiveCount polls the engine until the given number of runs is
// active or the deadline passes.
func waitForActiveCount(t *testing.T, srv *Server, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.engine.ActiveRunCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("active run count did not reach %d in time (have %d)", want, srv.engine.ActiveRunCount())
}

// ─── Macro Listing Tests ───────────────────────────────────────────

func TestListMacros_Empty(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if int(resp["count"].(float64)) != 0 {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestListMacros_SortedByName(t *testing.T) {
	srv := testServer(t)
	registerTestMacro(t, srv, "Zulu", true)
	registerTestMacro(t, srv, "Alpha", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp struct {
		Macros []macro.Macro `json:"macros"`
		Count  int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Macros[0].Name != "Alpha" || resp.Macros[1].Name != "Zulu" {
		t.Errorf("order = [%s, %s], want [Alpha, Zulu]", resp.Macros[0].Name, resp.Macros[1].Name)
	}
}

func TestGetMacro(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Lookup", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros/"+m.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got macro.Macro
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != m.ID {
		t.Errorf("ID = %q, want %q", got.ID, m.ID)
	}
	if got.Name != "Lookup" {
		t.Errorf("name = %q, want Lookup", got.Name)
	}
	if got.Trigger.EventType != event.TypeUser {
		t.Errorf("trigger event type = %q, want user", got.Trigger.EventType)
	}
}

func TestGetMacro_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros/nonexistent-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Enable/Disable Tests ──────────────────────────────────────────

func TestEnableMacro(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Toggled", false)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/enable", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	got, err := srv.macros.Get(m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Enabled {
		t.Error("macro should be enabled after POST /enable")
	}
}

func TestDisableMacro(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Toggled", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/disable", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	got, err := srv.macros.Get(m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Enabled {
		t.Error("macro should be disabled after POST /disable")
	}
}

func TestEnableMacro_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/nonexistent-id/enable", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Manual Run Tests ──────────────────────────────────────────────

func TestRunMacro(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Manual", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	runID, ok := resp["run_id"].(string)
	if !ok || runID == "" {
		t.Fatal("expected run_id to be a non-empty string")
	}

	run := waitForRunStatus(t, srv, runID, macro.StatusCompleted)
	if run.TriggerKind != macro.TriggerKindManual {
		t.Errorf("trigger_kind = %q, want manual", run.TriggerKind)
	}
}

func TestRunMacro_Disabled(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Dormant", false)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusConflict, w.Body.String())
	}
}

func TestRunMacro_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/nonexistent-id/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRunMacro_EngineClosed(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Shutdown", true)
	router := srv.buildRouter()

	srv.engine.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ─── Run History Tests ─────────────────────────────────────────────

func TestListMacroRuns(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Historic", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("run status = %d, want %d", w.Code, http.StatusAccepted)
	}

	var runResp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	waitForRunStatus(t, srv, runResp["run_id"].(string), macro.StatusCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/macros/"+m.ID+"/runs", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Runs  []macro.Run `json:"runs"`
		Count int         `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Runs[0].MacroID != m.ID {
		t.Errorf("macro_id = %q, want %q", resp.Runs[0].MacroID, m.ID)
	}
	if resp.Runs[0].Status != macro.StatusCompleted {
		t.Errorf("status = %q, want completed", resp.Runs[0].Status)
	}
}

func TestListMacroRuns_MacroNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros/nonexistent-id/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListMacroRuns_InvalidLimit(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Limited", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/macros/"+m.ID+"/runs?limit=zero", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListRecentRuns(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Recent", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var runResp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	waitForRunStatus(t, srv, runResp["run_id"].(string), macro.StatusCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestGetRun(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Inspect", true)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var runResp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	runID := runResp["run_id"].(string)
	waitForRunStatus(t, srv, runID, macro.StatusCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var run macro.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if run.ID != runID {
		t.Errorf("ID = %q, want %q", run.ID, runID)
	}
	if run.MacroName != "Inspect" {
		t.Errorf("macro_name = %q, want Inspect", run.MacroName)
	}
	if run.DurationMS == nil {
		t.Error("expected duration_ms to be set on a completed run")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nonexistent-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Active Run and Cancellation Tests ─────────────────────────────

func TestActiveRuns(t *testing.T) {
	srv := testServer(t)
	m, release := registerBlockingMacro(t, srv, "Long Running")
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("run status = %d, want %d", w.Code, http.StatusAccepted)
	}

	waitForActiveCount(t, srv, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/active", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}

	close(release)
	waitForActiveCount(t, srv, 0)
}

func TestCancelRun(t *testing.T) {
	srv := testServer(t)
	m, release := registerBlockingMacro(t, srv, "Cancellable")
	defer close(release)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/macros/"+m.ID+"/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var runResp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	runID := runResp["run_id"].(string)

	waitForActiveCount(t, srv, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+runID+"/cancel", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("cancel status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	run := waitForRunStatus(t, srv, runID, macro.StatusCancelled)
	if run.CompletedAt == nil {
		t.Error("expected completed_at to be set on a cancelled run")
	}
}

func TestCancelRun_NotActive(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/nonexistent-id/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
