// Package bbolt is a go.etcd.io/bbolt-backed PersistentStore, grounded on
// the teacher's hooks/storage/bolt hook: a single bucket, keys prefixed
// by collection, values JSON-marshaled via MarshalBinary/UnmarshalBinary.
package bbolt

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

const defaultBucket = "mqtt-core-service"

// Store is a bbolt-backed PersistentStore.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Options configures a bbolt Store.
type Options struct {
	Path    string
	Bucket  string
	Timeout time.Duration
}

// Open opens (creating if necessary) a bbolt database file and its
// bucket.
func Open(opts Options) (*Store, error) {
	if opts.Bucket == "" {
		opts.Bucket = defaultBucket
	}
	if opts.Timeout == 0 {
		opts.Timeout = 250 * time.Millisecond
	}

	db, err := bolt.Open(opts.Path, 0600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}

	bucket := []byte(opts.Bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: bucket}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) set(key string, v interface{ MarshalBinary() ([]byte, error) }) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), b)
	})
}

func (s *Store) del(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *Store) get(key string, v interface{ UnmarshalBinary([]byte) error }) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return v.UnmarshalBinary(raw)
	})
	return found, err
}

func (s *Store) iter(prefix string, visit func(key string, raw []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			if err := visit(string(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
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
		topicName := key[len(store.RetainedKeyPrefix):]
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
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			switch {
			case hasPrefix(k, []byte(store.SessionKeyPrefix)):
				stats.Sessions++
			case hasPrefix(k, []byte(store.RetainedKeyPrefix)):
				stats.Retained++
			case hasPrefix(k, []byte(store.MessageKeyPrefix)):
				stats.Messages++
			}
		}
		return nil
	})
	return stats, err
}
