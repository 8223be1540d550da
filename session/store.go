package session

import (
	"log/slog"
	"sync"
	"time"
)

// PersistentStore is the narrow subset of the broker's pluggable
// persistence collaborator that the session manager needs to reconstruct
// and save sessions across reconnects. Concrete backends in the store
// package satisfy this structurally alongside the broker's full
// persistence interface.
type PersistentStore interface {
	GetSession(clientID string) (*Snapshot, bool, error)
	PutSession(clientID string, snap *Snapshot, ttlSeconds int) error
	DeleteSession(clientID string) error
}

// Store owns every live Session, keyed by client-id, plus an optional
// persistence collaborator for cleanSession=false reconnects across
// broker restarts.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	persistent  PersistentStore
	queueLimit  int
	expirySecs  int
	log         *slog.Logger

	stop chan struct{}
	once sync.Once
}

// Options configures a session Store.
type Options struct {
	Persistent       PersistentStore
	QueueLimit       int           // offline queue cap per session, 0 = unbounded
	ExpiryInterval   int           // seconds a disconnected persistent session survives
	ExpirySweep      time.Duration // cadence of the expiry sweep, default 60s
	Log              *slog.Logger
}

// NewStore constructs a session Store.
func NewStore(opts Options) *Store {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	s := &Store{
		sessions:   make(map[string]*Session),
		persistent: opts.Persistent,
		queueLimit: opts.QueueLimit,
		expirySecs: opts.ExpiryInterval,
		log:        opts.Log,
		stop:       make(chan struct{}),
	}
	sweep := opts.ExpirySweep
	if sweep <= 0 {
		sweep = 60 * time.Second
	}
	if s.expirySecs > 0 {
		go s.expiryLoop(sweep)
	}
	return s
}

// Close stops the expiry sweep goroutine.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

// CreateOrReuse implements the session resolution rule from MQTT 3.1.1
// section 3.1.2.4: if clean, any prior session for client-id is
// destroyed and a fresh one is built; otherwise the in-memory session is
// reused if present, else reconstructed from the persistence
// collaborator, else created new. It reports whether a prior session
// actually existed (for the CONNACK sessionPresent flag) and, separately,
// whether the clean branch just destroyed a prior session — the caller
// must purge that client-id from the topic index in lockstep, since a
// destroyed session's subscriptions must not survive it.
func (s *Store) CreateOrReuse(clientID string, clean bool) (sess *Session, present bool, destroyedPrior bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[clientID]

	if clean {
		if ok {
			delete(s.sessions, clientID)
			if s.persistent != nil {
				if err := s.persistent.DeleteSession(clientID); err != nil {
					s.log.Warn("session: failed to delete persisted session", "client", clientID, "err", err)
				}
			}
		}
		fresh := newSession(clientID, true, s.queueLimit)
		fresh.SetConnected(true)
		s.sessions[clientID] = fresh
		return fresh, false, ok
	}

	if ok {
		existing.SetConnected(true)
		return existing, true, false
	}

	if s.persistent != nil {
		snap, found, err := s.persistent.GetSession(clientID)
		if err != nil {
			s.log.Warn("session: failed to load persisted session", "client", clientID, "err", err)
		} else if found {
			restored := restore(snap, s.queueLimit)
			restored.SetConnected(true)
			s.sessions[clientID] = restored
			return restored, true, false
		}
	}

	fresh := newSession(clientID, false, s.queueLimit)
	fresh.SetConnected(true)
	s.sessions[clientID] = fresh
	return fresh, false, false
}

// Get returns the in-memory session for client-id, if any.
func (s *Store) Get(clientID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[clientID]
	return sess, ok
}

// Disconnect marks a session disconnected. A clean session is destroyed
// immediately; a persistent session is persisted (if a collaborator is
// configured) and kept in memory until the expiry sweep reclaims it. It
// returns the session (for topic-index cleanup by the caller) and
// whether it was destroyed outright.
func (s *Store) Disconnect(clientID string) (sess *Session, destroyed bool) {
	s.mu.Lock()
	sess, ok := s.sessions[clientID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if sess.Clean {
		delete(s.sessions, clientID)
		s.mu.Unlock()
		return sess, true
	}
	sess.SetConnected(false)
	sess.Touch()
	s.mu.Unlock()

	if s.persistent != nil {
		if err := s.persistent.PutSession(clientID, sess.Snapshot(s.log), s.expirySecs); err != nil {
			s.log.Warn("session: failed to persist session on disconnect", "client", clientID, "err", err)
		}
	}
	return sess, false
}

func (s *Store) expiryLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.sweepExpired()
		}
	}
}

func (s *Store) sweepExpired() {
	cutoff := time.Duration(s.expirySecs) * time.Second
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := !sess.Connected && now.Sub(sess.LastActivity) > cutoff
		sess.mu.Unlock()
		if !expired {
			continue
		}
		delete(s.sessions, id)
		if s.persistent != nil {
			if err := s.persistent.DeleteSession(id); err != nil {
				s.log.Warn("session: failed to delete expired session", "client", id, "err", err)
			}
		}
	}
}
