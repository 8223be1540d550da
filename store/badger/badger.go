// Package badger is a github.com/dgraph-io/badger/v4-backed
// PersistentStore, following the same key-prefix convention as the
// store/bbolt backend against badger's transactional API.
package badger

import (
	"errors"

	bdg "github.com/dgraph-io/badger/v4"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// Store is a badger-backed PersistentStore.
type Store struct {
	db *bdg.DB
}

// Open opens (creating if necessary) a badger database directory.
func Open(path string) (*Store, error) {
	opts := bdg.DefaultOptions(path).WithLogger(nil)
	db, err := bdg.Open(opts)
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
	return s.db.Update(func(txn *bdg.Txn) error {
		return txn.Set([]byte(key), b)
	})
}

func (s *Store) del(key string) error {
	return s.db.Update(func(txn *bdg.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *Store) get(key string, v interface{ UnmarshalBinary([]byte) error }) (bool, error) {
	var found bool
	err := s.db.View(func(txn *bdg.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, bdg.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(raw []byte) error {
			return v.UnmarshalBinary(raw)
		})
	})
	return found, err
}

func (s *Store) iter(prefix string, visit func(key string, raw []byte) error) error {
	return s.db.View(func(txn *bdg.Txn) error {
		opts := bdg.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(raw []byte) error {
				return visit(string(item.Key()), raw)
			}); err != nil {
				return err
			}
		}
		return nil
	})
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
	for _, prefix := range []string{store.SessionKeyPrefix, store.RetainedKeyPrefix, store.MessageKeyPrefix} {
		count := 0
		err := s.db.View(func(txn *bdg.Txn) error {
			opts := bdg.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				count++
			}
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
