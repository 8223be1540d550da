package packets

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserReadsMultiplePacketsFromOneStream(t *testing.T) {
	var stream bytes.Buffer
	p1, _ := (&PingreqPacket{}).Encode()
	p2, _ := (&PublishPacket{TopicName: "a", Payload: []byte("b")}).Encode()
	stream.Write(p1)
	stream.Write(p2)

	parser := NewParser(&stream)

	fh1, _, err := parser.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, Pingreq, fh1.Type)

	fh2, got2, err := parser.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, Publish, fh2.Type)
	assert.Equal(t, "a", got2.(*PublishPacket).TopicName)

	_, _, err = parser.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParserRejectsUnknownPacketType(t *testing.T) {
	// type nibble 0 (Reserved0) with remaining length 0.
	stream := bytes.NewReader([]byte{0x00, 0x00})
	_, _, err := NewParser(stream).ReadPacket()
	assert.Error(t, err)
}

func TestParserPropagatesTruncatedPayload(t *testing.T) {
	// Declares 10 remaining bytes but supplies none.
	stream := bytes.NewReader([]byte{byte(Publish) << 4, 10})
	_, _, err := NewParser(stream).ReadPacket()
	assert.Error(t, err)
}
