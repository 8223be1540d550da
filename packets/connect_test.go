package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectEncodeDecodeRoundTrip(t *testing.T) {
	pk := &ConnectPacket{
		ProtocolName:  ProtocolName,
		ProtocolLevel: ProtocolLevel,
		CleanSession:  true,
		WillFlag:      true,
		WillQos:       1,
		WillRetain:    true,
		UsernameFlag:  true,
		PasswordFlag:  true,
		Keepalive:     60,
		ClientID:      "device-1",
		WillTopic:     "devices/device-1/status",
		WillMessage:   []byte("offline"),
		Username:      "alice",
		Password:      []byte("secret"),
	}

	encoded, err := pk.Encode()
	require.NoError(t, err)

	fh, got, err := NewParser(bytes.NewReader(encoded)).ReadPacket()
	require.NoError(t, err)
	require.Equal(t, Connect, fh.Type)

	decoded, ok := got.(*ConnectPacket)
	require.True(t, ok)
	assert.Equal(t, pk, decoded)
}

func TestConnectDecodeAcceptsBadProtocolLevel(t *testing.T) {
	// Decode must succeed even for an unacceptable protocol level; the
	// broker answers with CONNACK return code 1 rather than dropping the
	// connection on a malformed-packet error.
	pk := &ConnectPacket{
		ProtocolName:  ProtocolName,
		ProtocolLevel: 3,
		CleanSession:  true,
		ClientID:      "old-client",
	}
	encoded, err := pk.Encode()
	require.NoError(t, err)

	_, got, err := NewParser(bytes.NewReader(encoded)).ReadPacket()
	require.NoError(t, err)
	decoded := got.(*ConnectPacket)
	assert.Equal(t, byte(3), decoded.ProtocolLevel)
}

func TestConnectValidateRejectsEmptyClientIDWithoutCleanSession(t *testing.T) {
	pk := &ConnectPacket{ProtocolName: ProtocolName, ProtocolLevel: ProtocolLevel, CleanSession: false, ClientID: ""}
	assert.ErrorIs(t, pk.Validate(), ErrEmptyClientIDPersistent)
}

func TestConnectValidateRejectsPasswordWithoutUsername(t *testing.T) {
	pk := &ConnectPacket{
		ProtocolName: ProtocolName, ProtocolLevel: ProtocolLevel, CleanSession: true,
		PasswordFlag: true, UsernameFlag: false,
	}
	assert.ErrorIs(t, pk.Validate(), ErrMalformedFlags)
}

func TestConnectValidateRejectsWillRetainWithoutWillFlag(t *testing.T) {
	pk := &ConnectPacket{
		ProtocolName: ProtocolName, ProtocolLevel: ProtocolLevel, CleanSession: true,
		WillFlag: false, WillRetain: true,
	}
	assert.ErrorIs(t, pk.Validate(), ErrMalformedFlags)
}

func TestConnectValidateAcceptsMinimalConnect(t *testing.T) {
	pk := &ConnectPacket{ProtocolName: ProtocolName, ProtocolLevel: ProtocolLevel, CleanSession: true, ClientID: "a"}
	assert.NoError(t, pk.Validate())
}

func TestConnectDecodeRejectsTrailingBytes(t *testing.T) {
	pk := &ConnectPacket{ProtocolName: ProtocolName, ProtocolLevel: ProtocolLevel, CleanSession: true, ClientID: "a"}
	encoded, err := pk.Encode()
	require.NoError(t, err)

	var fh FixedHeader
	require.NoError(t, fh.Decode(encoded[0]))
	idx := 1
	remaining, n, err := decodeLength(func() (byte, error) {
		b := encoded[idx]
		idx++
		return b, nil
	})
	require.NoError(t, err)
	idx = 1 + n
	body := append(append([]byte(nil), encoded[idx:]...), 0xFF)
	fh.Remaining = remaining

	var decoded ConnectPacket
	err = decoded.Decode(fh, body)
	assert.ErrorIs(t, err, ErrRemainingLengthMismatch)
}
