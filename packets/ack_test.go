package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckPacketsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pk   Packet
		typ  byte
	}{
		{"puback", &PubackPacket{PacketID: 1}, Puback},
		{"pubrec", &PubrecPacket{PacketID: 2}, Pubrec},
		{"pubrel", &PubrelPacket{PacketID: 3}, Pubrel},
		{"pubcomp", &PubcompPacket{PacketID: 4}, Pubcomp},
		{"unsuback", &UnsubackPacket{PacketID: 5}, Unsuback},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := c.pk.Encode()
			require.NoError(t, err)

			fh, got, err := NewParser(byteReader(encoded)).ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, c.typ, fh.Type)
			assert.Equal(t, c.pk, got)
		})
	}
}

func TestAckDecodeRejectsTrailingBytes(t *testing.T) {
	cases := []struct {
		name string
		pk   Packet
	}{
		{"puback", &PubackPacket{}},
		{"pubrec", &PubrecPacket{}},
		{"pubrel", &PubrelPacket{}},
		{"pubcomp", &PubcompPacket{}},
		{"unsuback", &UnsubackPacket{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.pk.Decode(FixedHeader{}, []byte{0x00, 0x01, 0xFF})
			assert.ErrorIs(t, err, ErrRemainingLengthMismatch)
		})
	}
}
