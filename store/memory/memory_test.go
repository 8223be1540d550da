package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
)

func TestSessionRoundTrip(t *testing.T) {
	s := New()
	snap := &session.Snapshot{ClientID: "c1", Subscriptions: map[string]byte{"a/b": 1}}

	require.NoError(t, s.PutSession("c1", snap, 0))

	got, ok, err := s.GetSession("c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.ClientID, got.ClientID)

	require.NoError(t, s.DeleteSession("c1"))
	_, ok, err = s.GetSession("c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	s := New()
	require.NoError(t, s.PutSession("c1", &session.Snapshot{ClientID: "c1"}, 0))

	s.mu.Lock()
	e := s.sessions["c1"]
	e.expires = time.Now().Add(-time.Second)
	s.sessions["c1"] = e
	s.mu.Unlock()

	_, ok, err := s.GetSession("c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetainedEmptyPayloadDeletes(t *testing.T) {
	s := New()
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: []byte("x")}))
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: nil}))

	_, ok, err := s.GetRetained("a/b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchRetainedUsesFilterGrammar(t *testing.T) {
	s := New()
	require.NoError(t, s.PutRetained("sport/tennis", &store.RetainedRecord{Topic: "sport/tennis", Payload: []byte("x")}))

	got, err := s.MatchRetained("sport/#")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sport/tennis", got[0].Topic)
}

func TestStatsReflectsContents(t *testing.T) {
	s := New()
	require.NoError(t, s.PutSession("c1", &session.Snapshot{ClientID: "c1"}, 0))
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: []byte("x")}))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Retained)
}
