// Package broker implements the MQTT 3.1.1 broker orchestrator: the
// CONNECT handshake, per-packet dispatch, last-will publication and
// connection teardown, gluing together the codec, topic index, retained
// store, session store and QoS engine.
package broker

import "time"

// Message is one application message moving through the broker, from
// PUBLISH ingress to per-subscriber delivery.
type Message struct {
	Topic     string
	Payload   []byte
	Qos       byte
	Retain    bool
	Client    string // publishing client-id
	Timestamp time.Time
}
