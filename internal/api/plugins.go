package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchboard-core/internal/plugin"
)

// pluginResponse is the response body for a single plugin, combining the
// registry snapshot with the plugin's current configuration.
type pluginResponse struct {
	plugin.Info
	Config plugin.Config `json:"config,omitempty"`
}

// handleListPlugins returns all registered plugins with their states.
func (s *Server) handleListPlugins(w http.ResponseWriter, _ *http.Request) {
	infos := s.plugins.List()
	writeJSON(w, http.StatusOK, map[string]any{"plugins": infos, "count": len(infos)})
}

// handleGetPlugin returns a single plugin by ID.
func (s *Server) handleGetPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid plugin ID")
		return
	}

	p, err := s.plugins.Get(id)
	if err != nil {
		writePluginError(w, err, "failed to get plugin")
		return
	}
	state, err := s.plugins.State(id)
	if err != nil {
		writePluginError(w, err, "failed to get plugin")
		return
	}
	cfg, err := s.plugins.Config(id)
	if err != nil {
		writePluginError(w, err, "failed to get plugin")
		return
	}

	writeJSON(w, http.StatusOK, pluginResponse{
		Info: plugin.Info{
			ID:          p.ID(),
			Name:        p.Name(),
			Description: p.Description(),
			State:       state,
		},
		Config: cfg,
	})
}

// handleStartPlugin transitions a plugin to the running state.
func (s *Server) handleStartPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid plugin ID")
		return
	}

	if err := s.plugins.Start(r.Context(), id); err != nil {
		writePluginError(w, err, "failed to start plugin")
		return
	}

	s.writePluginState(w, id)
}

// handleStopPlugin transitions a plugin to the stopped state.
func (s *Server) handleStopPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid plugin ID")
		return
	}

	if err := s.plugins.Stop(r.Context(), id); err != nil {
		writePluginError(w, err, "failed to stop plugin")
		return
	}

	s.writePluginState(w, id)
}

// handleGetPluginConfig returns a plugin's current configuration.
func (s *Server) handleGetPluginConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid plugin ID")
		return
	}

	cfg, err := s.plugins.Config(id)
	if err != nil {
		writePluginError(w, err, "failed to get plugin config")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "config": cfg})
}

// handleUpdatePluginConfig replaces a plugin's configuration.
//
// The plugin may reject the new configuration; a rejected update leaves the
// previous configuration in place and returns 400.
func (s *Server) handleUpdatePluginConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid plugin ID")
		return
	}

	var cfg plugin.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.plugins.UpdateConfig(id, cfg); err != nil {
		if errors.Is(err, plugin.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writePluginError(w, err, "failed to update plugin config")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "config": cfg})
}

// writePluginState responds with the plugin's post-transition state.
func (s *Server) writePluginState(w http.ResponseWriter, id string) {
	state, err := s.plugins.State(id)
	if err != nil {
		writePluginError(w, err, "failed to read plugin state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": state})
}

// writePluginError maps plugin registry errors to HTTP responses.
//
// Lifecycle rules map to 409 (the transition is not legal from the current
// state) and hook failures to 500 with the hook's error preserved, since
// the plugin is now errored and the caller needs to know why.
func writePluginError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, plugin.ErrPluginNotFound):
		writeNotFound(w, "plugin not found")
	case errors.Is(err, plugin.ErrInvalidTransition):
		writeConflict(w, err.Error())
	case errors.Is(err, plugin.ErrHookFailure):
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}
