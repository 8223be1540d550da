package broker

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/transport"
)

// establish is the per-connection entry point handed to every listener.
// It runs the CONNECT handshake, then the packet dispatch loop, and
// finally teardown, entirely within one goroutine per connection.
func (s *Server) establish(listenID string, conn *transport.Conn) {
	c := newClient(conn, listenID)
	defer c.Close()

	if !s.registerClient(c) {
		// Admission control: reject silently, no CONNACK. Spec section 4.6.
		s.Log.Debug("broker: connection refused", "conn", c.ID, "err", newError(KindResourceLimit, ErrTooManyConnections))
		return
	}
	defer s.unregisterClient(c)

	if err := s.handshake(c); err != nil {
		s.Log.Debug("broker: handshake failed", "conn", c.ID, "err", err)
		return
	}
	s.Info.IncClientsConnected()
	defer s.Info.DecClientsConnected()

	err := s.dispatchLoop(c)
	s.teardown(c, err)
}

// handshake implements the CONNECT sequence from spec section 4.7.
func (s *Server) handshake(c *Client) error {
	fh, pk, err := c.conn.ReadPacket()
	if err != nil {
		return classifyReadErr(err)
	}
	connect, ok := pk.(*packets.ConnectPacket)
	if fh.Type != packets.Connect || !ok {
		return newError(KindProtocol, ErrUnknownPacketType)
	}

	if connect.ProtocolName != packets.ProtocolName || connect.ProtocolLevel != packets.ProtocolLevel {
		c.Send(&packets.ConnackPacket{ReturnCode: packets.CodeUnacceptableProtocol})
		return newError(KindProtocol, errors.New("broker: unacceptable protocol version"))
	}

	ok, user := s.Auth.Authenticate(connect.Username, connect.Password)
	if !ok {
		c.Send(&packets.ConnackPacket{ReturnCode: packets.CodeBadUsernameOrPassword})
		return newError(KindAuth, errors.New("broker: authentication failed for "+user))
	}

	clientID := connect.ClientID
	if clientID == "" {
		clientID = newAnonymousClientID()
	}

	sess, present, destroyedPrior := s.Sessions.CreateOrReuse(clientID, connect.CleanSession)
	if destroyedPrior {
		s.Topics.UnsubscribeClient(clientID)
	}
	c.bind(clientID, sess, connect.Keepalive)

	if connect.WillFlag {
		sess.Will = &session.Will{
			Topic:   connect.WillTopic,
			Payload: connect.WillMessage,
			Qos:     connect.WillQos,
			Retain:  connect.WillRetain,
		}
	} else {
		sess.Will = nil
	}

	s.bindClientID(c)
	c.touch()

	if err := c.Send(&packets.ConnackPacket{SessionPresent: present, ReturnCode: packets.CodeAccepted}); err != nil {
		return err
	}

	// Retained delivery for a restored persistent session's existing
	// subscriptions, then the offline queue, before marking the
	// connection authenticated and returning to normal dispatch.
	if present {
		for filter, qos := range sess.Subscriptions() {
			s.deliverRetained(c, sess, filter, qos)
		}
		s.drainOfflineQueue(c, sess)
	}

	c.setAuthenticated(true)
	return nil
}

func (s *Server) dispatchLoop(c *Client) error {
	keepaliveTimeout := time.Duration(float64(c.keepalive)*1.5) * time.Second

	for {
		if keepaliveTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(keepaliveTimeout))
		}

		fh, pk, err := c.conn.ReadPacket()
		if err != nil {
			return classifyReadErr(err)
		}
		c.touch()
		s.Info.IncPacketsReceived()

		if !c.isAuthenticated() {
			return newError(KindProtocol, ErrNotAuthenticated)
		}

		switch fh.Type {
		case packets.Connect:
			return newError(KindProtocol, ErrUnknownPacketType) // a second CONNECT is a protocol violation
		case packets.Publish:
			if err := s.handlePublish(c, pk.(*packets.PublishPacket)); err != nil {
				return err
			}
		case packets.Puback:
			s.QoS.HandlePuback(c.Session(), pk.(*packets.PubackPacket).PacketID)
		case packets.Pubrec:
			if err := s.QoS.HandlePubrec(c.Session(), pk.(*packets.PubrecPacket).PacketID, c); err != nil {
				return err
			}
		case packets.Pubrel:
			s.handlePubrel(c, pk.(*packets.PubrelPacket))
		case packets.Pubcomp:
			s.QoS.HandlePubcomp(c.Session(), pk.(*packets.PubcompPacket).PacketID)
		case packets.Subscribe:
			if err := s.handleSubscribe(c, pk.(*packets.SubscribePacket)); err != nil {
				return err
			}
		case packets.Unsubscribe:
			if err := s.handleUnsubscribe(c, pk.(*packets.UnsubscribePacket)); err != nil {
				return err
			}
		case packets.Pingreq:
			if err := c.Send(&packets.PingrespPacket{}); err != nil {
				return err
			}
		case packets.Disconnect:
			c.Session().Will = nil // graceful disconnect suppresses the will
			return io.EOF
		default:
			return newError(KindProtocol, ErrUnknownPacketType)
		}
	}
}

// classifyReadErr tags a packet-read failure with the error kind spec.md
// section 7 calls for. Ordinary disconnects (EOF, a closed connection) and
// keep-alive lapses are left as-is or tagged timeout; anything else
// reaching here is a codec-level decode failure, tagged protocol.
func classifyReadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newError(KindTimeout, err)
		}
		return err
	}
	return newError(KindProtocol, err)
}

// teardown runs the abrupt-vs-graceful disconnect logic from spec
// section 4.7: publish the will unless this was a graceful DISCONNECT,
// then resolve the session's fate through the session store.
func (s *Server) teardown(c *Client, dispatchErr error) {
	sess := c.Session()
	if sess == nil {
		return
	}

	graceful := errors.Is(dispatchErr, io.EOF) && sess.Will == nil
	if !graceful && sess.Will != nil {
		s.publishWill(sess)
	}

	_, destroyed := s.Sessions.Disconnect(sess.ClientID)
	if destroyed {
		s.Topics.UnsubscribeClient(sess.ClientID)
	}
}

func newAnonymousClientID() string {
	return "anon-" + randomSuffix()
}

// deliverRetained sends every retained message matching filter to c at
// the given granted qos, synchronously, before returning to the dispatch
// loop, per the ordering guarantee in spec section 5.
func (s *Server) deliverRetained(c *Client, sess *session.Session, filter string, grantedQos byte) {
	for _, m := range s.Retained.Matching(filter) {
		effective := m.Qos
		if grantedQos < effective {
			effective = grantedQos
		}
		s.QoS.Deliver(sess, c, m.Topic, m.Payload, effective, true, false)
	}
}

func (s *Server) drainOfflineQueue(c *Client, sess *session.Session) {
	for _, m := range sess.DrainQueue() {
		s.QoS.Deliver(sess, c, m.Topic, m.Payload, m.Qos, m.Retain, false)
	}
}
