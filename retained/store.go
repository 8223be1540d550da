// Package retained maps exact publish topics to the most recent message
// published to them with the retain flag set.
package retained

import (
	"sync"

	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// Message is the minimal shape the retained store needs; the broker
// package builds one from its own Message's topic, payload and qos.
type Message struct {
	Topic   string
	Payload []byte
	Qos     byte
}

// Store is a concurrency-safe topic -> retained message map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Message
}

// New returns an empty retained store.
func New() *Store {
	return &Store{entries: make(map[string]Message)}
}

// Put replaces the retained entry for m.Topic. Per MQTT 3.1.1 section
// 3.3.1.3, a retained publish with an empty payload deletes the entry
// rather than storing an empty message.
func (s *Store) Put(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(m.Payload) == 0 {
		delete(s.entries, m.Topic)
		return
	}
	s.entries[m.Topic] = m
}

// Delete removes the retained entry for topic, if any.
func (s *Store) Delete(topicName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, topicName)
}

// Get returns the retained entry for the exact topic, if any.
func (s *Store) Get(topicName string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[topicName]
	return m, ok
}

// Matching returns every retained entry whose topic satisfies filter.
func (s *Store) Matching(filter string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Message
	for t, m := range s.entries {
		if topic.Matches(filter, t) {
			out = append(out, m)
		}
	}
	return out
}
