// Package qos implements the MQTT 3.1.1 QoS 0/1/2 delivery state
// machines: outbound acknowledgment tracking with periodic retry, and
// inbound QoS-2 duplicate detection.
package qos

import (
	"errors"
	"log/slog"
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
)

// ErrQuotaExceeded is returned when a publish cannot be delivered to one
// subscriber because its packet-identifier space is exhausted. Other
// subscribers are unaffected.
var ErrQuotaExceeded = errors.New("qos: packet identifier space exhausted")

// Sender delivers an encoded control packet to one connected client. The
// broker's Client type implements this; the QoS engine never touches a
// net.Conn directly.
type Sender interface {
	Send(pk packets.Packet) error
}

// Config tunes the retry policy.
type Config struct {
	RetryInterval time.Duration // default 5s
	MaxRetries    int           // default 3
	Log           *slog.Logger
}

// Engine runs the outbound QoS 1/2 handshakes (against a session's
// inflight map) and the inbound QoS-2 duplicate-publish table.
type Engine struct {
	retryInterval time.Duration
	maxRetries    int
	log           *slog.Logger
}

// New constructs an Engine with the given retry policy.
func New(cfg Config) *Engine {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Engine{retryInterval: cfg.RetryInterval, maxRetries: cfg.MaxRetries, log: cfg.Log}
}

// Deliver sends topic/payload to sess's client at the given effective
// qos (already downgraded to min(publish.qos, subscription.qos) by the
// caller), tracking inflight state for qos 1 and 2.
func (e *Engine) Deliver(sess *session.Session, send Sender, topicName string, payload []byte, qos byte, retain, dup bool) error {
	if qos == 0 {
		return send.Send(&packets.PublishPacket{
			FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 0, Retain: retain, Dup: dup},
			TopicName:   topicName,
			Payload:     payload,
		})
	}

	id, err := sess.AllocPacketID()
	if err != nil {
		return ErrQuotaExceeded
	}

	state := session.AwaitingPuback
	if qos == 2 {
		state = session.AwaitingPubrec
	}
	sess.TrackInflight(&session.Inflight{
		PacketID: id,
		State:    state,
		Topic:    topicName,
		Payload:  payload,
		Qos:      qos,
		LastSent: time.Now(),
	})

	return send.Send(&packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: qos, Retain: retain, Dup: dup},
		TopicName:   topicName,
		PacketID:    id,
		Payload:     payload,
	})
}

// HandlePuback completes a QoS 1 outbound delivery.
func (e *Engine) HandlePuback(sess *session.Session, packetID uint16) {
	sess.AckInflight(packetID)
}

// HandlePubrec advances a QoS 2 outbound delivery to AWAITING_PUBCOMP and
// sends PUBREL. If the packet-id is not tracked (a stray or replayed
// PUBREC), a PUBREL is still sent so the peer can complete its own state
// machine, mirroring the teacher's tolerant handling of unmatched acks.
func (e *Engine) HandlePubrec(sess *session.Session, packetID uint16, send Sender) error {
	if in, ok := sess.Inflight(packetID); ok {
		in.State = session.AwaitingPubcomp
		in.LastSent = time.Now()
		in.RetryCount = 0
	}
	return send.Send(&packets.PubrelPacket{PacketID: packetID})
}

// HandlePubcomp completes a QoS 2 outbound delivery.
func (e *Engine) HandlePubcomp(sess *session.Session, packetID uint16) {
	sess.AckInflight(packetID)
}

// ReceivePublishQos2 records an inbound QoS-2 PUBLISH for dedup. It
// reports whether this is the first time the (session, packet-id) pair
// has been seen; a false return means the message must not be routed
// again, only re-acknowledged.
func (e *Engine) ReceivePublishQos2(sess *session.Session, packetID uint16) (first bool) {
	return sess.MarkQos2Received(packetID)
}

// ReceivePubrel completes the inbound QoS-2 handshake, clearing the
// dedup record for packetID.
func (e *Engine) ReceivePubrel(sess *session.Session, packetID uint16) {
	sess.ClearQos2Received(packetID)
}

// RetryScan is invoked periodically by the broker with every live,
// connected session. It resends any inflight entry whose last send
// exceeded the retry interval, abandoning entries past MaxRetries and
// reporting them via onFailed.
func (e *Engine) RetryScan(sessions []*session.Session, resolve func(clientID string) (Sender, bool), onFailed func(clientID string, in *session.Inflight)) {
	now := time.Now()
	for _, sess := range sessions {
		send, ok := resolve(sess.ClientID)
		if !ok {
			continue
		}
		for _, in := range sess.InflightSnapshot() {
			if now.Sub(in.LastSent) < e.retryInterval {
				continue
			}
			if in.RetryCount >= e.maxRetries {
				sess.AckInflight(in.PacketID)
				if onFailed != nil {
					onFailed(sess.ClientID, in)
				}
				continue
			}
			in.RetryCount++
			in.LastSent = now
			e.resend(send, in)
		}
	}
}

func (e *Engine) resend(send Sender, in *session.Inflight) {
	var err error
	switch in.State {
	case session.AwaitingPuback:
		err = send.Send(&packets.PublishPacket{
			FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1, Dup: true},
			TopicName:   in.Topic,
			PacketID:    in.PacketID,
			Payload:     in.Payload,
		})
	case session.AwaitingPubrec:
		err = send.Send(&packets.PublishPacket{
			FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 2, Dup: true},
			TopicName:   in.Topic,
			PacketID:    in.PacketID,
			Payload:     in.Payload,
		})
	case session.AwaitingPubcomp:
		err = send.Send(&packets.PubrelPacket{PacketID: in.PacketID})
	}
	if err != nil {
		e.log.Warn("qos: retry send failed", "packet_id", in.PacketID, "err", err)
	}
}
