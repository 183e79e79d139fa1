package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchboard-core/internal/event"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// submitEventRequest is the request body for POST /events.
//
// Type defaults to "user" and Source to "api", so the minimal request body
// is an empty object. The payload uses the {"kind": ..., "value": ...}
// envelope; omitting it submits an event with no payload.
type submitEventRequest struct {
	Type    event.Type    `json:"type"`
	Payload event.Payload `json:"payload"`
	Source  string        `json:"source"`
}

// submitEventResponse reports the dispatched event and any handler failures.
type submitEventResponse struct {
	Event    event.Event            `json:"event"`
	Failures []event.HandlerFailure `json:"failures,omitempty"`
}

// handleSubmitEvent injects an event into the dispatcher.
//
// Dispatch is synchronous: the response is written after every handler has
// run, and lists the handlers that failed. Macro runs triggered by the
// event continue asynchronously; their progress arrives on the WebSocket
// feed.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req submitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Type == "" {
		req.Type = event.TypeUser
	}
	if !req.Type.Valid() {
		writeBadRequest(w, "invalid event type")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	evt := event.New(req.Type, req.Payload, req.Source)
	failures, err := s.dispatcher.Submit(r.Context(), evt)
	if err != nil {
		if errors.Is(err, event.ErrDispatcherClosed) {
			writeUnavailable(w, "dispatcher is shut down")
			return
		}
		if errors.Is(err, event.ErrUnsupportedType) || errors.Is(err, event.ErrInvalidEvent) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to dispatch event")
		return
	}

	writeJSON(w, http.StatusOK, submitEventResponse{
		Event:    evt,
		Failures: failures,
	})
}

// handleListEvents returns logged events, newest first.
//
// Query parameters:
//   - type: filter by event type
//   - source: filter by emitter
//   - since: RFC 3339 lower bound on the event timestamp
//   - limit: maximum results (default 50, capped at 500)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.eventRepo == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	var filter event.LogFilter

	if typ := r.URL.Query().Get("type"); typ != "" {
		if !event.Type(typ).Valid() {
			writeBadRequest(w, "invalid event type")
			return
		}
		filter.Type = event.Type(typ)
	}

	if source := r.URL.Query().Get("source"); source != "" {
		if len(source) > maxQueryParamLen {
			writeBadRequest(w, "source exceeds maximum length")
			return
		}
		filter.Source = source
	}

	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	events, err := s.eventRepo.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list events")
		return
	}
	if events == nil {
		events = []event.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleGetEvent returns a single logged event by ID.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	if s.eventRepo == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid event ID")
		return
	}

	evt, err := s.eventRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			writeNotFound(w, "event not found")
			return
		}
		writeInternalError(w, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, evt)
}
