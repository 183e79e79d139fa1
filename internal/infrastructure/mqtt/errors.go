package mqtt

import "errors"

// Sentinel errors for broker operations. Callers match with errors.Is;
// wrapped variants carry the topic or broker detail.
var (
	// ErrNotConnected reports an operation attempted without a live
	// broker session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed reports a failed initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed reports a publish that was rejected or timed out.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed reports a subscribe that was rejected or timed out.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed reports an unsubscribe that was rejected or
	// timed out.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS reports a QoS level outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic reports an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
