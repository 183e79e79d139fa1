// Package config loads and validates the Switchboard Core configuration.
//
// Configuration comes from a YAML file layered over built-in defaults,
// with SWITCHBOARD_* environment variables on top. Load runs once at
// startup and hands the rest of the application an immutable *Config.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Credentials (MQTT password, InfluxDB token, JWT secret) belong in the
// environment, not the file, and the file itself should be 0600.
package config
