package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	encodeString(&buf, "sensors/kitchen/temperature")

	got, n, err := decodeString(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, "sensors/kitchen/temperature", got)
	assert.Equal(t, buf.Len(), n)
}

func TestStringRejectsEmbeddedNul(t *testing.T) {
	var buf bytes.Buffer
	encodeBytes(&buf, []byte("bad\x00topic"))

	_, _, err := decodeString(buf.Bytes(), 0)
	assert.ErrorIs(t, err, ErrMalformedString)
}

func TestStringRejectsInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	encodeBytes(&buf, []byte{0xff, 0xfe})

	_, _, err := decodeString(buf.Bytes(), 0)
	assert.ErrorIs(t, err, ErrMalformedString)
}

func TestDecodeBytesRejectsTruncatedLength(t *testing.T) {
	_, _, err := decodeBytes([]byte{0x00}, 0)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestDecodeBytesRejectsTruncatedPayload(t *testing.T) {
	_, _, err := decodeBytes([]byte{0x00, 0x05, 'a', 'b'}, 0)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestUint16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	encodeUint16(&buf, 4242)
	got, err := decodeUint16(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(4242), got)
}
