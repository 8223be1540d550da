package broker

import (
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/retained"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
)

// publishWill routes a disconnected client's last-will-and-testament
// through the normal publish pipeline, as if the client had sent a
// PUBLISH itself. Called only on abrupt disconnect; a graceful
// DISCONNECT clears sess.Will beforehand.
func (s *Server) publishWill(sess *session.Session) {
	will := sess.Will
	if will == nil {
		return
	}

	msg := Message{
		Topic:     will.Topic,
		Payload:   will.Payload,
		Qos:       will.Qos,
		Retain:    will.Retain,
		Client:    sess.ClientID,
		Timestamp: time.Now(),
	}

	if msg.Retain {
		s.Retained.Put(retained.Message{Topic: msg.Topic, Payload: msg.Payload, Qos: msg.Qos})
	}

	s.routeToSubscribers(msg)
	sess.Will = nil
}
