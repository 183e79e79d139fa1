// Switchboard Core - Event Automation Engine
//
// This is the main entry point for the Switchboard Core application.
// Switchboard is an event-driven automation engine built around:
//   - Plugins that emit events and contribute actions
//   - Macros that bind event triggers to action trees
//   - A global variable store shared by every macro
//   - A REST/WebSocket API for control and live monitoring
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/switchboard-core/migrations"

	"github.com/nerrad567/switchboard-core/internal/api"
	"github.com/nerrad567/switchboard-core/internal/event"
	"github.com/nerrad567/switchboard-core/internal/globals"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/config"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/database"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/journal"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/logging"
	"github.com/nerrad567/switchboard-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/switchboard-core/internal/macro"
	"github.com/nerrad567/switchboard-core/internal/plugin"
	"github.com/nerrad567/switchboard-core/internal/plugins/core"
	"github.com/nerrad567/switchboard-core/internal/plugins/system"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownHookTimeout bounds plugin Stop hooks during shutdown, after the
// signal context is already cancelled.
const shutdownHookTimeout = 10 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Shutdown happens through the deferred closes, which unwind in reverse
// creation order: API server first, then plugins, engine, dispatcher,
// journal, globals store, MQTT and finally the database.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Switchboard Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Create the globals store with the configured backend
	store, err := newGlobalsStore(ctx, cfg, mqttClient)
	if err != nil {
		return fmt.Errorf("creating globals store: %w", err)
	}
	store.SetLogger(log)
	defer func() {
		log.Info("closing globals store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing globals store", "error", closeErr)
		}
	}()
	log.Info("globals store ready", "backend", cfg.Globals.Backend)

	// Connect to the InfluxDB journal (optional)
	var journalClient *journal.Client
	if cfg.InfluxDB.Enabled {
		journalClient, err = journal.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to journal: %w", err)
		}
		defer func() {
			log.Info("closing journal connection")
			if closeErr := journalClient.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		log.Info("journal connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		journalClient.SetOnError(func(err error) {
			log.Error("journal write error", "error", err)
		})
	} else {
		log.Info("journal disabled")
	}

	// SQLite repositories for the event log and run history
	eventRepo := event.NewSQLiteRepository(db.DB)
	runRepo := macro.NewSQLiteRepository(db.DB)

	// Event dispatcher with the persistent event log attached
	dispatcher := event.NewDispatcher()
	dispatcher.SetLogger(log)
	defer func() {
		log.Info("closing event dispatcher")
		dispatcher.Close()
	}()

	if regErr := dispatcher.RegisterHandler(event.NewLogHandler(eventRepo)); regErr != nil {
		return fmt.Errorf("registering event log handler: %w", regErr)
	}
	if journalClient != nil {
		if regErr := dispatcher.RegisterHandler(journal.NewEventHandler(journalClient)); regErr != nil {
			return fmt.Errorf("registering journal handler: %w", regErr)
		}
	}
	if mqttClient != nil {
		if regErr := dispatcher.RegisterHandler(mqtt.NewRelayHandler(mqttClient)); regErr != nil {
			return fmt.Errorf("registering mqtt relay handler: %w", regErr)
		}
	}

	// Plugin and macro registries
	plugins := plugin.NewRegistry()
	plugins.SetLogger(log)
	macros := macro.NewRegistry()

	// WebSocket hub, shared between the API server and the macro engine
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Macro engine
	var runJournal macro.RunJournal
	if journalClient != nil {
		runJournal = journalClient
	}
	engine := macro.NewEngine(macros, runRepo, hub, runJournal, log)
	engine.SetRunTimeout(cfg.GetRunTimeout())
	engine.SetVariableResolver(store)
	defer func() {
		log.Info("closing macro engine")
		engine.Close()
	}()

	// Events trigger macros once every handler has been dispatched
	dispatcher.SetMacroTrigger(engine)

	// Built-in plugins
	if builtinErr := startBuiltins(ctx, plugins, dispatcher, store, log); builtinErr != nil {
		return fmt.Errorf("starting built-in plugins: %w", builtinErr)
	}
	defer stopPlugins(plugins, log)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Dispatcher:  dispatcher,
		Plugins:     plugins,
		Macros:      macros,
		Engine:      engine,
		Globals:     store,
		EventRepo:   eventRepo,
		RunRepo:     runRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"auth_required", cfg.Security.AuthRequired,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, journalClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SWITCHBOARD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SWITCHBOARD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newGlobalsStore creates the globals store with the backend named in the
// configuration. The mqtt backend reuses the shared broker connection;
// the redis backend opens its own client.
func newGlobalsStore(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client) (*globals.Store, error) {
	switch cfg.Globals.Backend {
	case "local":
		return globals.NewStore(globals.NewLocalBackend()), nil

	case "mqtt":
		if mqttClient == nil {
			return nil, fmt.Errorf("mqtt backend requires an MQTT connection")
		}
		backend, err := globals.NewMQTTBackend(mqttClient)
		if err != nil {
			return nil, fmt.Errorf("creating mqtt backend: %w", err)
		}
		return globals.NewStore(backend), nil

	case "redis":
		backend, err := globals.NewRedisBackend(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("creating redis backend: %w", err)
		}
		return globals.NewStore(backend), nil

	default:
		return nil, fmt.Errorf("unknown globals backend %q", cfg.Globals.Backend)
	}
}

// startBuiltins registers, initialises and starts the built-in plugins.
//
// The core plugin contributes the script, trigger-event and set-global
// actions; the system plugin announces host startup and shutdown. Both
// register under reserved IDs, so they go through RegisterBuiltin.
func startBuiltins(ctx context.Context, plugins *plugin.Registry, dispatcher *event.Dispatcher, store *globals.Store, log *logging.Logger) error {
	corePlugin := core.New(dispatcher, store)
	corePlugin.SetLogger(log)

	systemPlugin := system.New(dispatcher)
	systemPlugin.SetLogger(log)

	for _, p := range []plugin.Plugin{corePlugin, systemPlugin} {
		if err := plugins.RegisterBuiltin(p); err != nil {
			return fmt.Errorf("registering %s: %w", p.ID(), err)
		}
		if err := plugins.Initialize(ctx, p.ID()); err != nil {
			return fmt.Errorf("initialising %s: %w", p.ID(), err)
		}
		if err := plugins.Start(ctx, p.ID()); err != nil {
			return fmt.Errorf("starting %s: %w", p.ID(), err)
		}
		log.Info("built-in plugin started", "plugin_id", p.ID())
	}

	return nil
}

// stopPlugins stops every running plugin during shutdown.
//
// The signal context is already cancelled by the time this runs, so Stop
// hooks get a fresh timeout-bounded context. The system plugin's shutdown
// event fires here, while the dispatcher and engine are still open.
func stopPlugins(plugins *plugin.Registry, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownHookTimeout)
	defer cancel()

	for _, info := range plugins.List() {
		if info.State != plugin.StateRunning {
			continue
		}
		log.Info("stopping plugin", "plugin_id", info.ID)
		if err := plugins.Stop(ctx, info.ID); err != nil {
			log.Error("error stopping plugin", "plugin_id", info.ID, "error", err)
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - journalClient: Journal client to check (may be nil if disabled)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, journalClient *journal.Client, apiServer *api.Server) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check journal (if enabled)
	if journalClient != nil {
		if err := journalClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	// Check API server
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
