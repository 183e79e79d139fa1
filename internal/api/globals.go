package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchboard-core/internal/globals"
)

// maxGlobalKeyLen bounds key length on the HTTP surface. The store itself
// only rejects empty keys.
const maxGlobalKeyLen = 255

// handleGetGlobal returns a single named value.
//
// The value is serialized in its tagged envelope form, so the client can
// tell a stored integer from a stored float or JSON document.
func (s *Server) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxGlobalKeyLen {
		writeBadRequest(w, "invalid key")
		return
	}

	value, err := s.globals.Get(r.Context(), key)
	if err != nil {
		writeGlobalsError(w, err, "failed to get value")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

// handleSetGlobal creates or replaces a named value.
//
// The body is the tagged envelope, e.g. {"kind": "integer", "value": 42}.
func (s *Server) handleSetGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxGlobalKeyLen {
		writeBadRequest(w, "invalid key")
		return
	}

	var value globals.Value
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeBadRequest(w, "invalid value: "+err.Error())
		return
	}

	if err := s.globals.Set(r.Context(), key, value); err != nil {
		writeGlobalsError(w, err, "failed to set value")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

// handleDeleteGlobal removes a named value. Deleting a key that does not
// exist succeeds, so the handler is safe to retry.
func (s *Server) handleDeleteGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxGlobalKeyLen {
		writeBadRequest(w, "invalid key")
		return
	}

	if err := s.globals.Delete(r.Context(), key); err != nil {
		writeGlobalsError(w, err, "failed to delete value")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeGlobalsError maps store errors onto HTTP responses.
func writeGlobalsError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, globals.ErrNotFound):
		writeNotFound(w, "key not found")
	case errors.Is(err, globals.ErrInvalidKey), errors.Is(err, globals.ErrInvalidValue):
		writeBadRequest(w, err.Error())
	case errors.Is(err, globals.ErrStoreClosed), errors.Is(err, globals.ErrBackendUnavailable):
		writeUnavailable(w, "variable store unavailable")
	default:
		writeInternalError(w, fallback)
	}
}
