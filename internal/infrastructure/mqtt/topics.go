package mqtt

import "fmt"

// Topic prefixes for the Switchboard MQTT namespace.
//
// All topics live under the switchboard/ root:
//
//	switchboard/status/core      service online/offline status (retained)
//	switchboard/events/{type}    events relayed by the dispatcher
//	switchboard/globals/{key}    retained global variables (MQTT backend)
const (
	// TopicPrefix is the base for all Switchboard topics.
	TopicPrefix = "switchboard"

	// TopicPrefixEvents is the base for event relay topics.
	TopicPrefixEvents = "switchboard/events"

	// TopicPrefixGlobals is the base for retained global variable topics.
	TopicPrefixGlobals = "switchboard/globals"

	// TopicPrefixStatus is the base for service status topics.
	TopicPrefixStatus = "switchboard/status"
)

// Topics provides builders for Switchboard MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.Event("system")
//	// Returns: "switchboard/events/system"
type Topics struct{}

// Status returns the core service status topic.
// Online/offline messages and the LWT are published here, retained.
//
// Example: switchboard/status/core
func (Topics) Status() string {
	return fmt.Sprintf("%s/core", TopicPrefixStatus)
}

// Event returns the relay topic for a specific event type.
//
// Example: switchboard/events/system
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// Global returns the retained topic for a global variable key.
// The MQTT globals backend publishes value envelopes here.
//
// Example: switchboard/globals/scene.current
func (Topics) Global(key string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixGlobals, key)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllEvents returns a pattern matching all relayed events.
//
// Pattern: switchboard/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvents)
}

// AllGlobals returns a pattern matching all global variable topics.
// Used by the MQTT globals backend to warm its cache.
//
// Pattern: switchboard/globals/#
func (Topics) AllGlobals() string {
	return fmt.Sprintf("%s/#", TopicPrefixGlobals)
}

// AllTopics returns a pattern matching all Switchboard topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: switchboard/#
func (Topics) AllTopics() string {
	return "switchboard/#"
}
