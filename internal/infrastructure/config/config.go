package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Switchboard Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	Globals   GlobalsConfig   `yaml:"globals"`
	Engine    EngineConfig    `yaml:"engine"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServiceConfig identifies this Switchboard instance.
// The ID is used as the event source for system events and as the
// MQTT client identity when no explicit client_id is configured.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig covers the optional broker connection. With Enabled false
// the core runs standalone and skips the event relay and MQTT globals
// backend.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig sets the backoff window, in seconds. MaxAttempts
// zero means retry forever.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// RedisConfig contains Redis connection settings for the Redis globals backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GlobalsConfig selects the globals store backend.
//
// Backend is one of "local", "mqtt", or "redis". The mqtt and redis
// backends share state between instances; local keeps it in memory.
type GlobalsConfig struct {
	Backend string `yaml:"backend"`
}

// EngineConfig contains macro engine settings.
type EngineConfig struct {
	RunTimeout        int `yaml:"run_timeout"`
	RunHistoryLimit   int `yaml:"run_history_limit"`
	EventHistoryLimit int `yaml:"event_history_limit"`
}

// APIConfig shapes the HTTP server. Timeouts are in seconds.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists what cross-origin browsers may do. Empty slices mean
// permissive defaults, intended for development only.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the event feed connections. Intervals are in
// seconds, sizes in bytes.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig points the run journal at a bucket. Disabled by
// default; the engine runs fine without any journal.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig gates the protected API routes. AccessTokenTTL is in
// minutes.
type SecurityConfig struct {
	AuthRequired bool      `yaml:"auth_required"`
	JWT          JWTConfig `yaml:"jwt"`
}

type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load builds the configuration in three layers, each overriding the
// last: built-in defaults, the YAML file at path, then SWITCHBOARD_*
// environment variables (SWITCHBOARD_DATABASE_PATH,
// SWITCHBOARD_JWT_SECRET and so on). The result is validated before it
// is returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "switchboard-001",
			Name: "Switchboard",
		},
		Database: DatabaseConfig{
			Path:        "./data/switchboard.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "switchboard-core"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Globals: GlobalsConfig{Backend: "local"},
		Engine: EngineConfig{
			RunTimeout:        60,
			RunHistoryLimit:   100,
			EventHistoryLimit: 1000,
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging:  LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Security: SecurityConfig{JWT: JWTConfig{AccessTokenTTL: 15}},
	}
}

// applyEnvOverrides lets deployment-specific values, credentials above
// all, come from the environment instead of the YAML file.
func applyEnvOverrides(cfg *Config) {
	for env, dst := range map[string]*string{
		"SWITCHBOARD_DATABASE_PATH":   &cfg.Database.Path,
		"SWITCHBOARD_MQTT_HOST":       &cfg.MQTT.Broker.Host,
		"SWITCHBOARD_MQTT_USERNAME":   &cfg.MQTT.Auth.Username,
		"SWITCHBOARD_MQTT_PASSWORD":   &cfg.MQTT.Auth.Password,
		"SWITCHBOARD_REDIS_ADDR":      &cfg.Redis.Addr,
		"SWITCHBOARD_REDIS_PASSWORD":  &cfg.Redis.Password,
		"SWITCHBOARD_GLOBALS_BACKEND": &cfg.Globals.Backend,
		"SWITCHBOARD_API_HOST":        &cfg.API.Host,
		"SWITCHBOARD_INFLUXDB_TOKEN":  &cfg.InfluxDB.Token,
		"SWITCHBOARD_JWT_SECRET":      &cfg.Security.JWT.Secret,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Validate collects every problem in the configuration rather than
// stopping at the first, so a broken file gets fixed in one pass.
func (c *Config) Validate() error {
	var errs []string
	fail := func(msg string) { errs = append(errs, msg) }

	if c.Service.ID == "" {
		fail("service.id is required")
	}
	if c.Database.Path == "" {
		fail("database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1, or 2")
	}

	switch c.Globals.Backend {
	case "local", "mqtt", "redis":
	default:
		fail("globals.backend must be one of: local, mqtt, redis")
	}
	if c.Globals.Backend == "mqtt" && !c.MQTT.Enabled {
		fail("globals.backend \"mqtt\" requires mqtt.enabled: true")
	}
	if c.Globals.Backend == "redis" && c.Redis.Addr == "" {
		fail("globals.backend \"redis\" requires redis.addr")
	}

	if c.Engine.RunTimeout < 1 {
		fail("engine.run_timeout must be at least 1 second")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		fail("api.port must be between 1 and 65535")
	}

	// A forgeable JWT secret would let anyone drive the automation
	// engine remotely, so auth without a strong secret is refused.
	const minJWTSecretLength = 32
	if c.Security.AuthRequired {
		if c.Security.JWT.Secret == "" {
			fail("security.jwt.secret is required when auth_required is true (set SWITCHBOARD_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			fail("security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetRunTimeout returns the macro run timeout as a Duration.
func (c *Config) GetRunTimeout() time.Duration {
	return time.Duration(c.Engine.RunTimeout) * time.Second
}
