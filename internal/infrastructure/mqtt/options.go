package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial broker handshake.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds waiting for publish, subscribe and unsubscribe
	// acknowledgements.
	ackTimeout = 5 * time.Second

	// disconnectQuiesceMS gives in-flight operations a moment to finish
	// before the connection drops.
	disconnectQuiesceMS = 1000

	// keepAliveInterval is the MQTT keepalive ping cadence.
	keepAliveInterval = 60 * time.Second

	// maxQoS is the highest QoS level the protocol defines.
	maxQoS = 2
)

// clientOptions translates the Switchboard MQTT config into paho options:
// broker URL (tcp or ssl), client identity, credentials, clean session,
// and auto-reconnect with the configured backoff window.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// No persistent session on the broker; subscriptions are restored
	// from our own tracking on reconnect.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAliveInterval)

	return opts
}

// configureWill installs the Last Will and Testament on the status topic.
// The broker publishes it, retained at QoS 1, when the client vanishes
// without a graceful disconnect, so peers can tell a crash from a
// shutdown by the reason field.
func configureWill(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(Topics{}.Status(), statusPayload("offline", "unexpected_disconnect", clientID), 1, true)
}

// statusMessage is the wire shape of switchboard/status/core payloads.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusPayload renders a status message. Reason is omitted when empty,
// which is the case for online announcements.
func statusPayload(status, reason, clientID string) string {
	b, _ := json.Marshal(statusMessage{ //nolint:errcheck // fixed struct cannot fail to marshal
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return string(b)
}
