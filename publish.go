package broker

import (
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
	"github.com/byiringiro-aloys/mqtt-core-service/retained"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// handlePublish implements the PUBLISH handling rules from spec section
// 4.7: validate topic, update retained store, ack qos 1/2 as required,
// then fan out to matching subscribers.
func (s *Server) handlePublish(c *Client, pk *packets.PublishPacket) error {
	s.Info.IncMessagesReceived()

	if !topic.ValidTopic(pk.TopicName) {
		return newError(KindInvalidTopic, packets.ErrMalformedTopic)
	}

	sess := c.Session()

	if pk.FixedHeader.Qos == 2 {
		first := s.QoS.ReceivePublishQos2(sess, pk.PacketID)
		if err := c.Send(&packets.PubrecPacket{PacketID: pk.PacketID}); err != nil {
			return err
		}
		if !first {
			return nil // duplicate: re-acknowledged, not re-routed
		}
	} else if pk.FixedHeader.Qos == 1 {
		if err := c.Send(&packets.PubackPacket{PacketID: pk.PacketID}); err != nil {
			return err
		}
	}

	msg := Message{
		Topic:     pk.TopicName,
		Payload:   pk.Payload,
		Qos:       pk.FixedHeader.Qos,
		Retain:    pk.FixedHeader.Retain,
		Client:    sess.ClientID,
		Timestamp: time.Now(),
	}

	if msg.Retain {
		s.Retained.Put(retained.Message{Topic: msg.Topic, Payload: msg.Payload, Qos: msg.Qos})
		rec := &store.RetainedRecord{Topic: msg.Topic, Payload: msg.Payload, Qos: msg.Qos}
		if err := s.Store.PutRetained(msg.Topic, rec); err != nil {
			s.Log.Warn("broker: failed to persist retained message", "topic", msg.Topic, "err", newError(KindStorage, err))
		}
		s.Info.SetRetained(int64(len(s.Retained.Matching("#"))))
	}

	s.routeToSubscribers(msg)
	return nil
}

// handlePubrel completes the inbound QoS-2 handshake: emit PUBCOMP and
// clear the dedup record, tolerant of a packet-id it never saw a
// PUBLISH for (an out-of-order or replayed PUBREL).
func (s *Server) handlePubrel(c *Client, pk *packets.PubrelPacket) {
	s.QoS.ReceivePubrel(c.Session(), pk.PacketID)
	c.Send(&packets.PubcompPacket{PacketID: pk.PacketID})
}

// routeToSubscribers computes matching subscribers via the topic index
// and invokes the QoS engine for each, downgrading qos to
// min(publish.qos, subscription.qos) and queuing offline for persistent,
// disconnected sessions instead of dropping.
func (s *Server) routeToSubscribers(msg Message) {
	for clientID, subQos := range s.Topics.Subscribers(msg.Topic) {
		effective := msg.Qos
		if subQos < effective {
			effective = subQos
		}

		sess, ok := s.Sessions.Get(clientID)
		if !ok {
			continue
		}

		sender, connected := s.resolveSender(clientID)
		if !connected {
			if !sess.Clean {
				dropped := sess.Enqueue(session.QueuedMessage{
					Topic: msg.Topic, Payload: msg.Payload, Qos: effective, Retain: false,
				})
				if dropped {
					s.Info.IncMessagesDropped()
				}
			}
			continue
		}

		if err := s.QoS.Deliver(sess, sender, msg.Topic, msg.Payload, effective, false, false); err != nil {
			s.Log.Warn("broker: publish failed for subscriber", "client", clientID, "topic", msg.Topic, "err", newError(KindSession, err))
			s.Info.IncMessagesDropped()
			continue
		}
		s.Info.IncMessagesSent()
	}
}
