package broker

import (
	"github.com/byiringiro-aloys/mqtt-core-service/packets"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// handleSubscribe implements the SUBSCRIBE handling rules from spec
// section 4.7: validate each filter's grammar, grant qos, update the
// topic index and session, then deliver retained matches for each newly
// granted filter before returning to the dispatch loop.
func (s *Server) handleSubscribe(c *Client, pk *packets.SubscribePacket) error {
	sess := c.Session()
	codes := make([]byte, len(pk.Subscriptions))
	granted := make([]packets.TopicQos, 0, len(pk.Subscriptions))

	for i, req := range pk.Subscriptions {
		if !topic.ValidFilter(req.Filter) {
			codes[i] = packets.FailureCode
			continue
		}
		codes[i] = req.Qos
		s.Topics.Subscribe(req.Filter, sess.ClientID, req.Qos)
		sess.AddSubscription(req.Filter, req.Qos)
		granted = append(granted, req)
	}
	s.Info.SetSubscriptions(int64(len(sess.Subscriptions())))

	if err := c.Send(&packets.SubackPacket{PacketID: pk.PacketID, ReturnCodes: codes}); err != nil {
		return err
	}

	for _, g := range granted {
		s.deliverRetained(c, sess, g.Filter, g.Qos)
	}
	return nil
}

// handleUnsubscribe implements the UNSUBSCRIBE handling rules from spec
// section 4.7.
func (s *Server) handleUnsubscribe(c *Client, pk *packets.UnsubscribePacket) error {
	sess := c.Session()
	for _, filter := range pk.Filters {
		s.Topics.Unsubscribe(filter, sess.ClientID)
		sess.RemoveSubscription(filter)
	}
	s.Info.SetSubscriptions(int64(len(sess.Subscriptions())))
	return c.Send(&packets.UnsubackPacket{PacketID: pk.PacketID})
}
