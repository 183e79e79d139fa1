package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/macro"
)

// ─── Event Submission Tests ────────────────────────────────────────

func TestSubmitEvent_Defaults(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp submitEventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Event.ID == "" {
		t.Error("expected event ID to be generated")
	}
	if resp.Event.Type != event.TypeUser {
		t.Errorf("type = %q, want %q", resp.Event.Type, event.TypeUser)
	}
	if resp.Event.Source != "api" {
		t.Errorf("source = %q, want api", resp.Event.Source)
	}
	if len(resp.Failures) != 0 {
		t.Errorf("failures = %v, want none", resp.Failures)
	}
}

func TestSubmitEvent_TextPayload(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"type": "keypress", "source": "remote", "payload": {"kind": "text", "value": "F5"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp submitEventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Event.Type != event.TypeKeyPress {
		t.Errorf("type = %q, want keypress", resp.Event.Type)
	}
	if resp.Event.Source != "remote" {
		t.Errorf("source = %q, want remote", resp.Event.Source)
	}
	if text, ok := resp.Event.Payload.AsText(); !ok || text != "F5" {
		t.Errorf("payload text = %q (%v), want F5", text, ok)
	}
}

func TestSubmitEvent_InvalidJSON(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitEvent_InvalidType(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"type": "martian"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubmitEvent_DispatcherClosed(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	srv.dispatcher.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSubmitEvent_TriggersMacro(t *testing.T) {
	srv := testServer(t)
	m := registerTestMacro(t, srv, "Event Macro", true)
	router := srv.buildRouter()

	body := `{"type": "user", "source": "test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// The triggered run executes asynchronously; wait for its record
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := srv.runRepo.ListRuns(context.Background(), m.ID, 10)
		if err == nil && len(runs) == 1 && runs[0].Status == macro.StatusCompleted {
			if runs[0].TriggerKind != macro.TriggerKindEvent {
				t.Errorf("trigger_kind = %q, want event", runs[0].TriggerKind)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for triggered run to complete")
}

// ─── Event Log Tests ───────────────────────────────────────────────

func insertTestEvent(t *testing.T, srv *Server, id string, typ event.Type, source string, offset time.Duration) {
	t.Helper()

	evt := event.Event{
		ID:        id,
		Type:      typ,
		Payload:   event.TextPayload("payload-" + id),
		Source:    source,
		Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC).Add(offset),
	}
	if err := srv.eventRepo.Insert(context.Background(), evt); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestListEvents_Empty(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
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

func TestListEvents_FilterByType(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	insertTestEvent(t, srv, "evt-1", event.TypeKeyPress, "keyboard", 0)
	insertTestEvent(t, srv, "evt-2", event.TypeSystem, "host", time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?type=keypress", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Events []event.Event `json:"events"`
		Count  int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Events[0].ID != "evt-1" {
		t.Errorf("event ID = %q, want evt-1", resp.Events[0].ID)
	}
}

func TestListEvents_InvalidType(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?type=martian", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListEvents_InvalidSince(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?since=yesterday", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListEvents_Limit(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	for i := 0; i < 5; i++ {
		insertTestEvent(t, srv, fmt.Sprintf("evt-%d", i), event.TypeUser, "test", time.Duration(i)*time.Second)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if int(resp["count"].(float64)) != 2 {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestGetEvent(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	insertTestEvent(t, srv, "evt-get", event.TypeKeyPress, "keyboard", 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/evt-get", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got event.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != "evt-get" {
		t.Errorf("ID = %q, want evt-get", got.ID)
	}
	if got.Type != event.TypeKeyPress {
		t.Errorf("type = %q, want keypress", got.Type)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/nonexistent-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Event Feed Relay Tests ────────────────────────────────────────

func TestEventRelay_BroadcastsDispatchedEvents(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	if err := srv.registerEventRelay(); err != nil {
		t.Fatalf("registerEventRelay: %v", err)
	}

	// Hand-built client subscribed to the event feed
	client := &WSClient{
		hub:           srv.hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelEventDispatched: {}},
	}
	srv.hub.Register(client)

	body := `{"type": "user", "source": "feed-test", "payload": {"kind": "text", "value": "hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelEventDispatched {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelEventDispatched)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for relayed event")
	}
}

func TestEventRelay_NeverReportsFailure(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	// Relay with no hub clients at all; submission must still succeed
	// with zero handler failures.
	if err := srv.registerEventRelay(); err != nil {
		t.Fatalf("registerEventRelay: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp submitEventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(resp.Failures) != 0 {
		t.Errorf("failures = %v, want none", resp.Failures)
	}
}
