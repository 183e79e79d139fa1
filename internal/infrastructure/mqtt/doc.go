// Package mqtt connects Switchboard Core to its external bus.
//
// The broker is how the core shows itself to the rest of the network:
// dispatched events are relayed under switchboard/events/{type}, the
// globals store can mirror shared variables as retained messages under
// switchboard/globals/, and switchboard/status/core carries a retained
// online/offline announcement backed by a Last Will, so peers can tell
// a crash ("unexpected_disconnect") from a shutdown
// ("graceful_shutdown").
//
// Client wraps paho.mqtt.golang with acknowledgement timeouts, QoS
// validation, panic-safe handler dispatch and subscription tracking.
// Tracked subscriptions are replayed automatically when the connection
// comes back, so callers subscribe once and forget about reconnects.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe(mqtt.Topics{}.AllGlobals(), 1, func(topic string, payload []byte) error {
//	    log.Debug("global changed", "topic", topic)
//	    return nil
//	})
//
// TLS with broker credentials is expected outside local development;
// payloads themselves are not encrypted beyond the transport.
package mqtt
