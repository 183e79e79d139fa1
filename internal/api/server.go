package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/config"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/logging"
	"github.com/nerrad567/switchboard-core/internal/macro"
	"github.com/nerrad567/switchboard-core/internal/plugin"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Dispatcher *event.Dispatcher
	Plugins    *plugin.Registry
	Macros     *macro.Registry
	Engine     *macro.Engine
	Globals    *globals.Store
	EventRepo  event.Repository // optional: event log endpoints 503 without it
	RunRepo    macro.Repository // optional: run history endpoints 503 without it

	// ExternalHub, if set, is used instead of creating a hub internally.
	// Needed when the macro engine also broadcasts through the hub.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for Switchboard Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	dispatcher *event.Dispatcher
	plugins    *plugin.Registry
	macros     *macro.Registry
	engine     *macro.Engine
	globals    *globals.Store
	eventRepo  event.Repository
	runRepo    macro.Repository
	version    string
	startTime  time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("event dispatcher is required")
	}
	if deps.Plugins == nil {
		return nil, fmt.Errorf("plugin registry is required")
	}
	if deps.Macros == nil {
		return nil, fmt.Errorf("macro registry is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("macro engine is required")
	}
	if deps.Globals == nil {
		return nil, fmt.Errorf("globals store is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		plugins:    deps.Plugins,
		macros:     deps.Macros,
		engine:     deps.Engine,
		globals:    deps.Globals,
		eventRepo:  deps.EventRepo,
		runRepo:    deps.RunRepo,
		version:    deps.Version,
		startTime:  time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start brings the API up: WebSocket hub, ticket cleanup, the event
// feed relay on the dispatcher, then the HTTP listener on a background
// goroutine. Stop with Close.
func (s *Server) Start(ctx context.Context) error {
	// Close() must be able to stop the background goroutines without
	// touching the caller's context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	go s.cleanTicketsLoop(srvCtx)

	// Mirror every dispatched event onto the WebSocket feed
	if err := s.registerEventRelay(); err != nil {
		s.logger.Warn("event feed relay not registered", "error", err)
	}

	s.server = s.buildHTTPServer(s.buildRouter())
	go s.serve()

	return nil
}

func (s *Server) buildHTTPServer(handler http.Handler) *http.Server {
	readTimeout := time.Duration(s.cfg.Timeouts.Read) * time.Second
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
}

// serve runs the listener until shutdown, with TLS when configured.
func (s *Server) serve() {
	var err error
	if s.cfg.TLS.Enabled {
		s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
		err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("API server error", "error", err)
	}
}

// Close drains in-flight requests for up to gracefulShutdownTimeout and
// then tears the listener down. Background goroutines (hub, ticket
// cleanup) stop via the internal context.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.unregisterEventRelay()

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
