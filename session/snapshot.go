package session

import (
	"encoding/json"
	"log/slog"

	"github.com/jinzhu/copier"
)

// Snapshot is the serializable projection of a Session handed to a
// PersistentStore, deep-copied so the store never observes a session
// still being mutated in memory.
type Snapshot struct {
	ClientID      string
	Clean         bool
	Keepalive     uint16
	Will          *Will
	Subscriptions map[string]byte
	Queue         []QueuedMessage
	Inflight      []*Inflight
}

// Snapshot copies the session's persistable state. The offline queue is
// copied via copier, matching the teacher's own use of jinzhu/copier for
// client bookkeeping; subscriptions, will and inflight are copied by hand.
// log receives a warning if the copy fails; the snapshot is still
// returned with whatever queue state copier managed to produce.
func (s *Session) Snapshot(log *slog.Logger) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		ClientID:      s.ClientID,
		Clean:         s.Clean,
		Keepalive:     s.Keepalive,
		Subscriptions: make(map[string]byte, len(s.subscriptions)),
	}
	for f, q := range s.subscriptions {
		snap.Subscriptions[f] = q
	}
	if s.Will != nil {
		will := *s.Will
		snap.Will = &will
	}
	if len(s.queue) > 0 {
		if err := copier.Copy(&snap.Queue, &s.queue); err != nil && log != nil {
			log.Warn("session: failed to copy offline queue into snapshot", "client", s.ClientID, "err", err)
		}
	}
	for _, in := range s.inflight {
		cp := *in
		snap.Inflight = append(snap.Inflight, &cp)
	}
	return snap
}

// MarshalBinary satisfies the Serializable shape expected by the
// store package's byte-oriented backends (bbolt, badger, pebble, redis).
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary satisfies the Serializable shape expected by the store
// package's byte-oriented backends.
func (s *Snapshot) UnmarshalBinary(b []byte) error {
	return json.Unmarshal(b, s)
}

// restore rebuilds an in-memory session from a persisted snapshot.
func restore(snap *Snapshot, queueLimit int) *Session {
	s := newSession(snap.ClientID, snap.Clean, queueLimit)
	s.Keepalive = snap.Keepalive
	s.Will = snap.Will
	for f, q := range snap.Subscriptions {
		s.subscriptions[f] = q
	}
	s.queue = append([]QueuedMessage(nil), snap.Queue...)
	for _, in := range snap.Inflight {
		s.inflight[in.PacketID] = in
	}
	return s
}
