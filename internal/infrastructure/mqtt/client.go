package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/switchboard-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for Switchboard: connection lifecycle,
// publish and subscribe with acknowledgement timeouts, retained status
// announcements and automatic re-subscription after reconnects.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// subscriptions holds every active subscription so handleConnect can
	// re-establish them after a broker reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	cbMu         sync.RWMutex

	logger Logger
	logMu  sync.RWMutex
}

// Logger receives handler errors and recovered panics. Satisfied by
// logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is invoked once per received message, each call on its
// own goroutine. A returned error is logged and the message is still
// acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and returns a ready client.
// The connection carries a retained Last Will so peers learn about
// crashes, announces itself on switchboard/status/core once up, and
// reconnects on its own with the configured backoff.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := clientOptions(cfg)
	configureWill(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have fired
	// yet; mark connected here so IsConnected is true on return.
	c.setConnected(true)

	return c, nil
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	c.restoreSubscriptions()
	c.announceOnline()

	c.cbMu.RLock()
	cb := c.onConnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.cbMu.RLock()
	cb := c.onDisconnect
	c.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

func (c *Client) setConnected(up bool) {
	c.connMu.Lock()
	c.connected = up
	c.connMu.Unlock()
}

// restoreSubscriptions re-subscribes every tracked topic. Tokens are not
// waited on; a restore that fails is attempted again on the next
// reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// announceOnline publishes the retained online status message.
func (c *Client) announceOnline() {
	c.client.Publish(Topics{}.Status(), byte(c.cfg.QoS), true, statusPayload("online", "", c.cfg.Broker.ClientID))
}

// Close publishes a graceful offline status, distinct from the Last Will
// crash payload, then disconnects after a short quiesce for in-flight
// operations. Closing a client that never connected is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.Status(), byte(c.cfg.QoS), true, statusPayload("offline", "graceful_shutdown", c.cfg.Broker.ClientID))
		token.WaitTimeout(ackTimeout)
	}

	c.client.Disconnect(disconnectQuiesceMS)
	c.setConnected(false)

	return nil
}

// HealthCheck reports whether the broker session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	// Short-circuit keeps this safe on a client that never dialled.
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers cb to run after every successful connect,
// including reconnects.
func (c *Client) SetOnConnect(cb func()) {
	c.cbMu.Lock()
	c.onConnect = cb
	c.cbMu.Unlock()
}

// SetOnDisconnect registers cb to run when the connection drops, with
// the cause.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.cbMu.Lock()
	c.onDisconnect = cb
	c.cbMu.Unlock()
}

// SetLogger routes handler errors and panics to logger. Without one they
// are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.logMu.Lock()
	c.logger = logger
	c.logMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.logMu.RLock()
	defer c.logMu.RUnlock()
	return c.logger
}

// awaitToken waits for a broker acknowledgement and folds timeouts and
// token errors into the given sentinel.
func (c *Client) awaitToken(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

// wrapHandler adapts a MessageHandler for paho, recovering panics and
// logging handler failures.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				if log := c.getLogger(); log != nil {
					log.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
				}
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			if log := c.getLogger(); log != nil {
				log.Warn("MQTT handler returned error", "topic", topic, "error", err)
			}
		}
	}
}
