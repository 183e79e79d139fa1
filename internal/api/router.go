package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the chi router: global middleware, the open
// endpoints, then everything else behind authMiddleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		s.corsMiddleware,
		s.bodySizeLimitMiddleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints: liveness, login, and basic engine monitoring.
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/status", s.handleStatus)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Event submission and log
			r.Route("/events", func(r chi.Router) {
				r.Post("/", s.handleSubmitEvent)
				r.Get("/", s.handleListEvents)
				r.Get("/{id}", s.handleGetEvent)
			})

			// Plugin lifecycle
			r.Route("/plugins", func(r chi.Router) {
				r.Get("/", s.handleListPlugins)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPlugin)
					r.Post("/start", s.handleStartPlugin)
					r.Post("/stop", s.handleStopPlugin)
					r.Get("/config", s.handleGetPluginConfig)
					r.Put("/config", s.handleUpdatePluginConfig)
				})
			})

			// Macro management
			r.Route("/macros", func(r chi.Router) {
				r.Get("/", s.handleListMacros)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetMacro)
					r.Post("/enable", s.handleEnableMacro)
					r.Post("/disable", s.handleDisableMacro)
					r.Post("/run", s.handleRunMacro)
					r.Get("/runs", s.handleListMacroRuns)
				})
			})

			// Run history and active runs
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRecentRuns)
				r.Get("/active", s.handleActiveRuns)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRun)
					r.Post("/cancel", s.handleCancelRun)
				})
			})

			// Named globals
			r.Route("/globals/{key}", func(r chi.Router) {
				r.Get("/", s.handleGetGlobal)
				r.Put("/", s.handleSetGlobal)
				r.Delete("/", s.handleDeleteGlobal)
			})

			// WebSocket upgrade authenticates with a ticket instead of
			// the bearer header, checked inside the handler.
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}
