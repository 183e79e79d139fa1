package mqtt

import (
	"fmt"
)

// Subscribe registers handler for messages matching topic. Standard MQTT
// wildcards apply: "switchboard/events/+" matches one level,
// "switchboard/#" matches the whole tree.
//
// Each message is delivered on its own goroutine, so handlers that block
// only slow themselves down. The subscription is tracked and restored
// automatically after a reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Tracked before the broker exchange so a reconnect racing this call
	// still restores the handler.
	c.trackSubscription(topic, qos, handler)

	err := c.awaitToken(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed)
	if err != nil {
		c.dropSubscription(topic)
	}
	return err
}

// Unsubscribe stops delivery for topic. Messages already in flight may
// still reach the handler. The topic must match the subscribed pattern
// exactly.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.dropSubscription(topic)

	return c.awaitToken(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

// SubscriptionCount reports how many subscriptions are tracked.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether topic has a tracked subscription.
// Exact string match only, no pattern expansion.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

func (c *Client) trackSubscription(topic string, qos byte, handler MessageHandler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
}

func (c *Client) dropSubscription(topic string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subscriptions, topic)
}
