// Package redis is a github.com/go-redis/redis/v8-backed PersistentStore,
// following the same key-prefix convention as the other store backends.
// TTLs are passed straight through as Redis key expirations. Tests back
// this package with github.com/alicebob/miniredis/v2 rather than a live
// Redis instance.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
)

// Store is a redis-backed PersistentStore.
type Store struct {
	client *redis.Client
}

// New wraps an already-configured *redis.Client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error { return s.client.Close() }

func ttl(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return 0
	}
	return time.Duration(ttlSeconds) * time.Second
}

func (s *Store) set(ctx context.Context, key string, v interface{ MarshalBinary() ([]byte, error) }, ttlSeconds int) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl(ttlSeconds)).Err()
}

func (s *Store) get(ctx context.Context, key string, v interface{ UnmarshalBinary([]byte) error }) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := v.UnmarshalBinary(raw); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *Store) GetSession(clientID string) (*session.Snapshot, bool, error) {
	ctx := context.Background()
	snap := &session.Snapshot{}
	found, err := s.get(ctx, store.SessionKey(clientID), snap)
	if err != nil || !found {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *Store) PutSession(clientID string, snap *session.Snapshot, ttlSeconds int) error {
	return s.set(context.Background(), store.SessionKey(clientID), snap, ttlSeconds)
}

func (s *Store) DeleteSession(clientID string) error {
	return s.client.Del(context.Background(), store.SessionKey(clientID)).Err()
}

func (s *Store) GetRetained(topicName string) (*store.RetainedRecord, bool, error) {
	ctx := context.Background()
	rec := &store.RetainedRecord{}
	found, err := s.get(ctx, store.RetainedKey(topicName), rec)
	if err != nil || !found {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *Store) PutRetained(topicName string, rec *store.RetainedRecord) error {
	if len(rec.Payload) == 0 {
		return s.DeleteRetained(topicName)
	}
	return s.set(context.Background(), store.RetainedKey(topicName), rec, 0)
}

func (s *Store) DeleteRetained(topicName string) error {
	return s.client.Del(context.Background(), store.RetainedKey(topicName)).Err()
}

func (s *Store) MatchRetained(filter string) ([]*store.RetainedRecord, error) {
	ctx := context.Background()
	keys, err := s.scan(ctx, store.RetainedKeyPrefix)
	if err != nil {
		return nil, err
	}
	var out []*store.RetainedRecord
	for _, key := range keys {
		topicName := strings.TrimPrefix(key, store.RetainedKeyPrefix)
		if !topic.Matches(filter, topicName) {
			continue
		}
		rec := &store.RetainedRecord{}
		if found, err := s.get(ctx, key, rec); err != nil {
			return nil, err
		} else if found {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) PutMessage(rec *store.MessageRecord, ttlSeconds int) error {
	return s.set(context.Background(), store.MessageKey(rec.ID), rec, ttlSeconds)
}

func (s *Store) Stats() (store.Stats, error) {
	ctx := context.Background()
	sessions, err := s.scan(ctx, store.SessionKeyPrefix)
	if err != nil {
		return store.Stats{}, err
	}
	retained, err := s.scan(ctx, store.RetainedKeyPrefix)
	if err != nil {
		return store.Stats{}, err
	}
	messages, err := s.scan(ctx, store.MessageKeyPrefix)
	if err != nil {
		return store.Stats{}, err
	}
	return store.Stats{Sessions: len(sessions), Retained: len(retained), Messages: len(messages)}, nil
}
