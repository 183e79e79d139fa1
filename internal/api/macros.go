package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchboard-core/internal/macro"
)

// defaultRunHistoryLimit caps run history responses unless the client asks
// for less.
const defaultRunHistoryLimit = 50

// handleListMacros returns all registered macros, sorted by name.
func (s *Server) handleListMacros(w http.ResponseWriter, _ *http.Request) {
	macros := s.macros.List()
	writeJSON(w, http.StatusOK, map[string]any{"macros": macros, "count": len(macros)})
}

// handleGetMacro returns a single macro by ID.
func (s *Server) handleGetMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	m, err := s.macros.Get(id)
	if err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// handleEnableMacro marks a macro as eligible for triggering.
func (s *Server) handleEnableMacro(w http.ResponseWriter, r *http.Request) {
	s.toggleMacro(w, r, true)
}

// handleDisableMacro stops a macro from triggering without removing it.
func (s *Server) handleDisableMacro(w http.ResponseWriter, r *http.Request) {
	s.toggleMacro(w, r, false)
}

func (s *Server) toggleMacro(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	var err error
	if enabled {
		err = s.macros.Enable(id)
	} else {
		err = s.macros.Disable(id)
	}
	if err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to update macro")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}

// handleRunMacro starts a manual run of a macro, bypassing its trigger.
//
// The run executes asynchronously; the response carries the run ID and
// progress arrives on the WebSocket channels macro.run_started and
// macro.run_completed.
func (s *Server) handleRunMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	runID, err := s.engine.RunMacro(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, macro.ErrMacroNotFound):
			writeNotFound(w, "macro not found")
		case errors.Is(err, macro.ErrMacroDisabled):
			writeConflict(w, "macro is disabled")
		case errors.Is(err, macro.ErrEngineClosed):
			writeUnavailable(w, "macro engine is shut down")
		default:
			writeInternalError(w, "failed to run macro")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":  runID,
		"status":  "accepted",
		"message": "macro run started, progress will follow via WebSocket",
	})
}

// handleListMacroRuns returns run history for a single macro, newest first.
func (s *Server) handleListMacroRuns(w http.ResponseWriter, r *http.Request) {
	if s.runRepo == nil {
		writeUnavailable(w, "run history not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	// Verify macro exists
	if _, err := s.macros.Get(id); err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	limit, ok := runLimitParam(w, r)
	if !ok {
		return
	}

	runs, err := s.runRepo.ListRuns(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []macro.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleListRecentRuns returns the most recent runs across all macros.
func (s *Server) handleListRecentRuns(w http.ResponseWriter, r *http.Request) {
	if s.runRepo == nil {
		writeUnavailable(w, "run history not configured")
		return
	}

	limit, ok := runLimitParam(w, r)
	if !ok {
		return
	}

	runs, err := s.runRepo.ListRecent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []macro.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns a single run record by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runRepo == nil {
		writeUnavailable(w, "run history not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid run ID")
		return
	}

	run, err := s.runRepo.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, macro.ErrRunNotFound) {
			writeNotFound(w, "run not found")
			return
		}
		writeInternalError(w, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleCancelRun requests cancellation of an active run.
//
// Cancellation is cooperative: the run stops at its next cancellation
// point, and the final record lands in run history once it does.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid run ID")
		return
	}

	if err := s.engine.CancelRun(id); err != nil {
		switch {
		case errors.Is(err, macro.ErrRunNotFound):
			writeNotFound(w, "run is not active")
		case errors.Is(err, macro.ErrEngineClosed):
			writeUnavailable(w, "macro engine is shut down")
		default:
			writeInternalError(w, "failed to cancel run")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": id,
		"status": "cancelling",
	})
}

// handleActiveRuns returns the IDs of the runs currently executing.
func (s *Server) handleActiveRuns(w http.ResponseWriter, _ *http.Request) {
	ids := s.engine.ActiveRuns()
	writeJSON(w, http.StatusOK, map[string]any{"run_ids": ids, "count": len(ids)})
}

// runLimitParam parses the optional limit query parameter, writing a 400
// response and reporting false when it is malformed.
func runLimitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultRunHistoryLimit, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		writeBadRequest(w, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
