package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound payloads at 1MB, matching common broker
// limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic at the given QoS level. When retained
// is true the broker stores the message and hands it to new subscribers,
// which suits state topics but not events or commands.
//
// The topic must be non-empty, qos must be 0..2 and the payload must fit
// within 1MB. Publishing on a disconnected client returns
// ErrNotConnected rather than queueing.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return c.awaitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishString publishes a string payload. Shorthand for Publish with
// []byte(payload).
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured default
// QoS. Used for state updates new subscribers should see immediately.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
