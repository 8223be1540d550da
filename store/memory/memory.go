// Package memory is the always-available in-process PersistentStore
// backend. It is the default when persistence.storageType is "memory" or
// unset, and offers no durability across process restarts.
package memory

import (
	"sync"
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

type entry[T any] struct {
	value   T
	expires time.Time // zero means no expiry
}

// Store is a map-backed PersistentStore, safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]entry[*session.Snapshot]
	retained  map[string]*store.RetainedRecord
	messages  map[string]entry[*store.MessageRecord]
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]entry[*session.Snapshot]),
		retained: make(map[string]*store.RetainedRecord),
		messages: make(map[string]entry[*store.MessageRecord]),
	}
}

func (s *Store) GetSession(clientID string) (*session.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[clientID]
	if !ok || expired(e.expires) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *Store) PutSession(clientID string, snap *session.Snapshot, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[clientID] = entry[*session.Snapshot]{value: snap, expires: ttlDeadline(ttlSeconds)}
	return nil
}

func (s *Store) DeleteSession(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, clientID)
	return nil
}

func (s *Store) GetRetained(topicName string) (*store.RetainedRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.retained[topicName]
	return rec, ok, nil
}

func (s *Store) PutRetained(topicName string, rec *store.RetainedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rec.Payload) == 0 {
		delete(s.retained, topicName)
		return nil
	}
	s.retained[topicName] = rec
	return nil
}

func (s *Store) DeleteRetained(topicName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retained, topicName)
	return nil
}

func (s *Store) MatchRetained(filter string) ([]*store.RetainedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.RetainedRecord
	for t, rec := range s.retained {
		if topic.Matches(filter, t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) PutMessage(rec *store.MessageRecord, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[rec.ID] = entry[*store.MessageRecord]{value: rec, expires: ttlDeadline(ttlSeconds)}
	return nil
}

func (s *Store) Stats() (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{
		Sessions: len(s.sessions),
		Retained: len(s.retained),
		Messages: len(s.messages),
	}, nil
}

func (s *Store) Close() error { return nil }

func ttlDeadline(ttlSeconds int) time.Time {
	if ttlSeconds <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(ttlSeconds) * time.Second)
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
