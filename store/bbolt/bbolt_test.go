package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "broker.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBboltSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	snap := &session.Snapshot{ClientID: "c1", Subscriptions: map[string]byte{"a/b": 1}}

	require.NoError(t, s.PutSession("c1", snap, 0))

	got, ok, err := s.GetSession("c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", got.ClientID)

	require.NoError(t, s.DeleteSession("c1"))
	_, ok, err = s.GetSession("c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBboltRetainedEmptyPayloadDeletes(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: []byte("x")}))
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: nil}))

	_, ok, err := s.GetRetained("a/b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBboltMatchRetainedUsesFilterGrammar(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutRetained("sport/tennis", &store.RetainedRecord{Topic: "sport/tennis", Payload: []byte("x")}))
	require.NoError(t, s.PutRetained("sport/football", &store.RetainedRecord{Topic: "sport/football", Payload: []byte("y")}))

	got, err := s.MatchRetained("sport/tennis/#")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sport/tennis", got[0].Topic)
}

func TestBboltStatsCountsEachCollection(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutSession("c1", &session.Snapshot{ClientID: "c1"}, 0))
	require.NoError(t, s.PutRetained("a/b", &store.RetainedRecord{Topic: "a/b", Payload: []byte("x")}))
	require.NoError(t, s.PutMessage(&store.MessageRecord{ID: "m1", Topic: "a/b"}, 0))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Retained)
	assert.Equal(t, 1, stats.Messages)
}

func TestBboltPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broker.db")

	s, err := Open(Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.PutSession("c1", &session.Snapshot{ClientID: "c1", Subscriptions: map[string]byte{"x": 1}}, 0))
	require.NoError(t, s.Close())

	reopened, err := Open(Options{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, ok, err := reopened.GetSession("c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte(1), got.Subscriptions["x"])
}
