// Package pebble is a github.com/cockroachdb/pebble-backed
// PersistentStore, following the same key-prefix convention as
// store/bbolt and store/badger against pebble's LSM-tree API.
package pebble

import (
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// Store is a pebble-backed PersistentStore.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble database directory.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) set(key string, v interface{ MarshalBinary() ([]byte, error) }) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	return s.db.Set([]byte(key), b, pebble.Sync)
}

func (s *Store) del(key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *Store) get(key string, v interface{ UnmarshalBinary([]byte) error }) (bool, error) {
	raw, closer, err := s.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	if err := v.UnmarshalBinary(raw); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) iter(prefix string, visit func(key string, raw []byte) error) error {
	upper := prefixUpperBound(prefix)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if err := visit(string(it.Key()), it.Value()); err != nil {
			return err
		}
	}
	return nil
}

// prefixUpperBound returns the smallest key that sorts after every key
// with the given prefix, for a bounded prefix scan.
func prefixUpperBound(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return b[:i+1]
		}
	}
	return nil
}

func (s *Store) GetSession(clientID string) (*session.Snapshot, bool, error) {
	snap := &session.Snapshot{}
	found, err := s.get(store.SessionKey(clientID), snap)
	if err != nil || !found {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *Store) PutSession(clientID string, snap *session.Snapshot, _ int) error {
	return s.set(store.SessionKey(clientID), snap)
}

func (s *Store) DeleteSession(clientID string) error {
	return s.del(store.SessionKey(clientID))
}

func (s *Store) GetRetained(topicName string) (*store.RetainedRecord, bool, error) {
	rec := &store.RetainedRecord{}
	found, err := s.get(store.RetainedKey(topicName), rec)
	if err != nil || !found {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *Store) PutRetained(topicName string, rec *store.RetainedRecord) error {
	if len(rec.Payload) == 0 {
		return s.del(store.RetainedKey(topicName))
	}
	return s.set(store.RetainedKey(topicName), rec)
}

func (s *Store) DeleteRetained(topicName string) error {
	return s.del(store.RetainedKey(topicName))
}

func (s *Store) MatchRetained(filter string) ([]*store.RetainedRecord, error) {
	var out []*store.RetainedRecord
	err := s.iter(store.RetainedKeyPrefix, func(key string, raw []byte) error {
		topicName := strings.TrimPrefix(key, store.RetainedKeyPrefix)
		if !topic.Matches(filter, topicName) {
			return nil
		}
		rec := &store.RetainedRecord{}
		if err := rec.UnmarshalBinary(raw); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *Store) PutMessage(rec *store.MessageRecord, _ int) error {
	return s.set(store.MessageKey(rec.ID), rec)
}

func (s *Store) Stats() (store.Stats, error) {
	var stats store.Stats
	for _, prefix := range []string{store.SessionKeyPrefix, store.RetainedKeyPrefix, store.MessageKeyPrefix} {
		count := 0
		err := s.iter(prefix, func(string, []byte) error {
			count++
			return nil
		})
		if err != nil {
			return store.Stats{}, err
		}
		switch prefix {
		case store.SessionKeyPrefix:
			stats.Sessions = count
		case store.RetainedKeyPrefix:
			stats.Retained = count
		case store.MessageKeyPrefix:
			stats.Messages = count
		}
	}
	return stats, nil
}
