package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocPacketIDSkipsZeroAndInflight(t *testing.T) {
	s := newSession("c1", true, 0)

	id, err := s.AllocPacketID()
	require.NoError(t, err)
	assert.NotZero(t, id)

	s.TrackInflight(&Inflight{PacketID: id})
	next, err := s.AllocPacketID()
	require.NoError(t, err)
	assert.NotEqual(t, id, next)
}

func TestAllocPacketIDExhaustion(t *testing.T) {
	s := newSession("c1", true, 0)
	for i := 1; i <= 65535; i++ {
		s.TrackInflight(&Inflight{PacketID: uint16(i)})
	}
	_, err := s.AllocPacketID()
	assert.ErrorIs(t, err, errPacketIDExhausted)
}

func TestAckInflightRemovesEntry(t *testing.T) {
	s := newSession("c1", true, 0)
	s.TrackInflight(&Inflight{PacketID: 7})

	in, ok := s.AckInflight(7)
	require.True(t, ok)
	assert.Equal(t, uint16(7), in.PacketID)

	_, ok = s.Inflight(7)
	assert.False(t, ok)
}

func TestEnqueueDropsOldestOnOverflow(t *testing.T) {
	s := newSession("c1", false, 2)

	assert.False(t, s.Enqueue(QueuedMessage{Topic: "a"}))
	assert.False(t, s.Enqueue(QueuedMessage{Topic: "b"}))
	assert.True(t, s.Enqueue(QueuedMessage{Topic: "c"}))

	got := s.DrainQueue()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Topic)
	assert.Equal(t, "c", got[1].Topic)
}

func TestDrainQueueEmptiesIt(t *testing.T) {
	s := newSession("c1", false, 0)
	s.Enqueue(QueuedMessage{Topic: "a"})
	first := s.DrainQueue()
	assert.Len(t, first, 1)
	assert.Empty(t, s.DrainQueue())
}

func TestMarkQos2ReceivedReportsFirstOnlyOnce(t *testing.T) {
	s := newSession("c1", true, 0)
	assert.True(t, s.MarkQos2Received(1))
	assert.False(t, s.MarkQos2Received(1))

	s.ClearQos2Received(1)
	assert.True(t, s.MarkQos2Received(1))
}

func TestSubscriptionsSnapshotIsACopy(t *testing.T) {
	s := newSession("c1", true, 0)
	s.AddSubscription("a/b", 1)

	snap := s.Subscriptions()
	snap["a/b"] = 2

	assert.Equal(t, byte(1), s.Subscriptions()["a/b"])
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newSession("c1", false, 0)
	s.AddSubscription("a/b", 2)
	s.Enqueue(QueuedMessage{Topic: "q", Payload: []byte("x"), Qos: 1})
	s.Will = &Will{Topic: "w", Payload: []byte("bye")}
	id, err := s.AllocPacketID()
	require.NoError(t, err)
	s.TrackInflight(&Inflight{PacketID: id, State: AwaitingPuback, Topic: "t"})

	snap := s.Snapshot(nil)
	restored := restore(snap, 0)

	assert.Equal(t, s.ClientID, restored.ClientID)
	assert.Equal(t, byte(2), restored.subscriptions["a/b"])
	assert.Equal(t, "w", restored.Will.Topic)
	require.Len(t, restored.queue, 1)
	assert.Equal(t, "q", restored.queue[0].Topic)
	_, ok := restored.inflight[id]
	assert.True(t, ok)
}

func TestSnapshotMarshalUnmarshalBinary(t *testing.T) {
	s := newSession("c1", false, 0)
	s.AddSubscription("a/b", 1)
	snap := s.Snapshot(nil)

	b, err := snap.MarshalBinary()
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, snap.ClientID, got.ClientID)
	assert.Equal(t, snap.Subscriptions, got.Subscriptions)
}
