// Package store defines the broker's pluggable persistence collaborator.
// Concrete backends live in store/memory (the in-memory default),
// store/bbolt, store/badger, store/pebble and store/redis.
package store

import (
	"encoding/json"
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
)

// RetainedRecord is the persisted shape of one retained message.
type RetainedRecord struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
	Qos     byte   `json:"qos"`
}

// MarshalBinary implements session.Snapshot-style serialization for the
// byte-oriented backends.
func (r *RetainedRecord) MarshalBinary() ([]byte, error) { return json.Marshal(r) }

// UnmarshalBinary implements session.Snapshot-style deserialization.
func (r *RetainedRecord) UnmarshalBinary(b []byte) error { return json.Unmarshal(b, r) }

// MessageRecord is an optional persisted copy of a message, for replay.
type MessageRecord struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Qos       byte      `json:"qos"`
	Retain    bool      `json:"retain"`
	Client    string    `json:"client"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalBinary implements byte-oriented serialization.
func (m *MessageRecord) MarshalBinary() ([]byte, error) { return json.Marshal(m) }

// UnmarshalBinary implements byte-oriented deserialization.
func (m *MessageRecord) UnmarshalBinary(b []byte) error { return json.Unmarshal(b, m) }

// Stats summarizes what a PersistentStore currently holds.
type Stats struct {
	Sessions int
	Retained int
	Messages int
}

// PersistentStore is the full pluggable persistence collaborator: session
// state (for cleanSession=false reconnects), retained messages, and an
// optional message replay log. On any failure the broker continues to
// operate against in-memory state and surfaces the error on its log —
// a PersistentStore failure MUST NOT be fatal.
type PersistentStore interface {
	GetSession(clientID string) (*session.Snapshot, bool, error)
	PutSession(clientID string, snap *session.Snapshot, ttlSeconds int) error
	DeleteSession(clientID string) error

	GetRetained(topicName string) (*RetainedRecord, bool, error)
	PutRetained(topicName string, rec *RetainedRecord) error
	DeleteRetained(topicName string) error
	MatchRetained(filter string) ([]*RetainedRecord, error)

	PutMessage(rec *MessageRecord, ttlSeconds int) error

	Stats() (Stats, error)

	Close() error
}

// Key prefixes shared by every byte-oriented backend, matching the
// teacher's own SUB/SYS/RET/IFM/CL convention.
const (
	SessionKeyPrefix  = "SESS:"
	RetainedKeyPrefix = "RET:"
	MessageKeyPrefix  = "MSG:"
)

// SessionKey builds the storage key for a session snapshot.
func SessionKey(clientID string) string { return SessionKeyPrefix + clientID }

// RetainedKey builds the storage key for a retained message.
func RetainedKey(topicName string) string { return RetainedKeyPrefix + topicName }

// MessageKey builds the storage key for a replay-log message.
func MessageKey(id string) string { return MessageKeyPrefix + id }
