package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// =============================================================================
// Relay Handler Tests (no broker required)
// =============================================================================

func TestRelayHandler_Name(t *testing.T) {
	handler := NewRelayHandler(&Client{})

	if handler.Name() != RelayHandlerName {
		t.Errorf("Name() = %q, want %q", handler.Name(), RelayHandlerName)
	}
}

func TestRelayHandler_SupportedTypes(t *testing.T) {
	handler := NewRelayHandler(&Client{})

	if types := handler.SupportedTypes(); types != nil {
		t.Errorf("SupportedTypes() = %v, want nil (all types)", types)
	}
}

func TestRelayHandler_Disconnected(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := NewRelayHandler(client)

	evt := event.New(event.TypeUser, event.TextPayload("hello"), "test")

	err := handler.HandleEvent(context.Background(), evt)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("HandleEvent() error = %v, want ErrNotConnected", err)
	}
	if !strings.Contains(err.Error(), evt.ID) {
		t.Errorf("HandleEvent() error %q should name the event ID %q", err, evt.ID)
	}
}
