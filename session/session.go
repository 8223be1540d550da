// Package session owns per-client session state that must survive a
// connection when the client connected with cleanSession=false: the
// subscription set, the offline message queue, and the inflight window
// of outbound QoS>0 deliveries awaiting acknowledgment.
package session

import (
	"sync"
	"time"
)

// InflightState names where an outbound QoS>0 delivery sits in its
// acknowledgment handshake.
type InflightState int

const (
	AwaitingPuback InflightState = iota
	AwaitingPubrec
	AwaitingPubcomp
)

// Inflight is one outbound message awaiting its terminal acknowledgment,
// or one outbound PUBREL awaiting PUBCOMP.
type Inflight struct {
	PacketID   uint16
	State      InflightState
	Topic      string
	Payload    []byte
	Qos        byte
	LastSent   time.Time
	RetryCount int
}

// Will is the last-will-and-testament recorded at CONNECT time.
type Will struct {
	Topic   string
	Payload []byte
	Qos     byte
	Retain  bool
}

// QueuedMessage is one message parked in a persistent session's offline
// queue while its client is disconnected.
type QueuedMessage struct {
	Topic   string
	Payload []byte
	Qos     byte
	Retain  bool
}

// Session is all state for one client-id that may outlive any single
// connection.
type Session struct {
	mu sync.Mutex

	ClientID     string
	Clean        bool
	Keepalive    uint16
	Will         *Will
	Connected    bool
	CreatedAt    time.Time
	LastActivity time.Time

	subscriptions map[string]byte // filter -> granted qos
	queue         []QueuedMessage
	queueLimit    int

	inflight     map[uint16]*Inflight
	nextPacketID uint16

	qos2Received map[uint16]bool // inbound QoS-2 dedup table
}

func newSession(clientID string, clean bool, queueLimit int) *Session {
	return &Session{
		ClientID:      clientID,
		Clean:         clean,
		CreatedAt:     time.Now(),
		LastActivity:  time.Now(),
		subscriptions: make(map[string]byte),
		inflight:      make(map[uint16]*Inflight),
		qos2Received:  make(map[uint16]bool),
		queueLimit:    queueLimit,
		nextPacketID:  1,
	}
}

// Touch updates the last-activity timestamp. Store.Disconnect calls it so
// the session-expiry sweep measures idle time from the disconnect.
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// SetConnected updates the connected flag under the session's own lock,
// so the expiry sweep's read of it is never racy with a reconnect or
// disconnect running on another goroutine.
func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	s.Connected = connected
	s.mu.Unlock()
}

// IsConnected reports the connected flag under the session's own lock.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Connected
}

// Subscriptions returns a snapshot of the filter -> granted qos map.
func (s *Session) Subscriptions() map[string]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]byte, len(s.subscriptions))
	for f, q := range s.subscriptions {
		out[f] = q
	}
	return out
}

// AddSubscription records a granted filter/qos pair.
func (s *Session) AddSubscription(filter string, qos byte) {
	s.mu.Lock()
	s.subscriptions[filter] = qos
	s.mu.Unlock()
}

// RemoveSubscription drops a filter.
func (s *Session) RemoveSubscription(filter string) {
	s.mu.Lock()
	delete(s.subscriptions, filter)
	s.mu.Unlock()
}

// Enqueue appends to the offline queue, dropping the oldest entry on
// overflow. It reports whether an existing entry was dropped.
func (s *Session) Enqueue(m QueuedMessage) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueLimit > 0 && len(s.queue) >= s.queueLimit {
		s.queue = s.queue[1:]
		dropped = true
	}
	s.queue = append(s.queue, m)
	return dropped
}

// DrainQueue atomically returns and empties the offline queue.
func (s *Session) DrainQueue() []QueuedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}

// AllocPacketID returns the smallest free packet identifier in [1,65535],
// starting from a rolling cursor, or an error if every identifier is
// currently inflight.
func (s *Session) AllocPacketID() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextPacketID
	for {
		id := s.nextPacketID
		if s.nextPacketID == 65535 {
			s.nextPacketID = 1
		} else {
			s.nextPacketID++
		}
		if _, inUse := s.inflight[id]; !inUse {
			return id, nil
		}
		if s.nextPacketID == start {
			return 0, errPacketIDExhausted
		}
	}
}

// TrackInflight records an outbound delivery awaiting acknowledgment.
func (s *Session) TrackInflight(in *Inflight) {
	s.mu.Lock()
	s.inflight[in.PacketID] = in
	s.mu.Unlock()
}

// Inflight returns the tracked entry for packetID, if any.
func (s *Session) Inflight(packetID uint16) (*Inflight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inflight[packetID]
	return in, ok
}

// AckInflight removes and returns the tracked entry for packetID.
func (s *Session) AckInflight(packetID uint16) (*Inflight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inflight[packetID]
	if ok {
		delete(s.inflight, packetID)
	}
	return in, ok
}

// InflightSnapshot returns every currently tracked inflight entry, for
// resend on reconnect or for the retry sweep.
func (s *Session) InflightSnapshot() []*Inflight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Inflight, 0, len(s.inflight))
	for _, in := range s.inflight {
		out = append(out, in)
	}
	return out
}

// ClearInflight empties the inflight map. The session store does not call
// it: a clean session is dropped whole on disconnect.
func (s *Session) ClearInflight() {
	s.mu.Lock()
	s.inflight = make(map[uint16]*Inflight)
	s.mu.Unlock()
}

// MarkQos2Received records that a PUBLISH with this packet-id has been
// seen, for inbound QoS-2 dedup. It reports whether this is the first
// time the id has been seen.
func (s *Session) MarkQos2Received(packetID uint16) (first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.qos2Received[packetID] {
		return false
	}
	s.qos2Received[packetID] = true
	return true
}

// ClearQos2Received drops the dedup record for packetID, called on
// PUBREL per MQTT 3.1.1 section 4.3.3.
func (s *Session) ClearQos2Received(packetID uint16) {
	s.mu.Lock()
	delete(s.qos2Received, packetID)
	s.mu.Unlock()
}
