package retained

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutAndGet(t *testing.T) {
	s := New()
	s.Put(Message{Topic: "a/b", Payload: []byte("1"), Qos: 1})

	got, ok := s.Get("a/b")
	assert.True(t, ok)
	assert.Equal(t, byte(1), got.Qos)
	assert.Equal(t, []byte("1"), got.Payload)
}

func TestPutEmptyPayloadDeletes(t *testing.T) {
	s := New()
	s.Put(Message{Topic: "a/b", Payload: []byte("1")})
	s.Put(Message{Topic: "a/b", Payload: nil})

	_, ok := s.Get("a/b")
	assert.False(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := New()
	s.Put(Message{Topic: "a/b", Payload: []byte("1")})
	s.Delete("a/b")

	_, ok := s.Get("a/b")
	assert.False(t, ok)
}

func TestMatchingAppliesFilterGrammar(t *testing.T) {
	s := New()
	s.Put(Message{Topic: "sport/tennis/player1", Payload: []byte("x")})
	s.Put(Message{Topic: "sport/football/player2", Payload: []byte("y")})

	got := s.Matching("sport/tennis/#")
	assert.Len(t, got, 1)
	assert.Equal(t, "sport/tennis/player1", got[0].Topic)
}

func TestMatchingOverEmptyStore(t *testing.T) {
	s := New()
	assert.Empty(t, s.Matching("#"))
}
