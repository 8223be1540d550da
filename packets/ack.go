package packets

import "bytes"

// encodeAck builds the 2-byte packet-identifier-only body shared by
// PUBACK, PUBREC, PUBREL, PUBCOMP and UNSUBACK.
func encodeAck(packetType byte, packetID uint16) ([]byte, error) {
	var body bytes.Buffer
	encodeUint16(&body, packetID)

	fh := FixedHeader{Type: packetType, Remaining: body.Len()}
	var out bytes.Buffer
	if err := fh.Encode(&out); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func decodeAck(b []byte) (uint16, error) {
	id, err := decodeUint16(b, 0)
	if err != nil {
		return 0, err
	}
	if len(b) != 2 {
		return 0, ErrRemainingLengthMismatch
	}
	return id, nil
}

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct{ PacketID uint16 }

func (pk *PubackPacket) Encode() ([]byte, error) { return encodeAck(Puback, pk.PacketID) }
func (pk *PubackPacket) Decode(_ FixedHeader, b []byte) error {
	id, err := decodeAck(b)
	pk.PacketID = id
	return err
}

// PubrecPacket acknowledges receipt of a QoS 2 PUBLISH.
type PubrecPacket struct{ PacketID uint16 }

func (pk *PubrecPacket) Encode() ([]byte, error) { return encodeAck(Pubrec, pk.PacketID) }
func (pk *PubrecPacket) Decode(_ FixedHeader, b []byte) error {
	id, err := decodeAck(b)
	pk.PacketID = id
	return err
}

// PubrelPacket releases a QoS 2 PUBLISH for delivery.
type PubrelPacket struct{ PacketID uint16 }

func (pk *PubrelPacket) Encode() ([]byte, error) { return encodeAck(Pubrel, pk.PacketID) }
func (pk *PubrelPacket) Decode(_ FixedHeader, b []byte) error {
	id, err := decodeAck(b)
	pk.PacketID = id
	return err
}

// PubcompPacket completes a QoS 2 PUBLISH handshake.
type PubcompPacket struct{ PacketID uint16 }

func (pk *PubcompPacket) Encode() ([]byte, error) { return encodeAck(Pubcomp, pk.PacketID) }
func (pk *PubcompPacket) Decode(_ FixedHeader, b []byte) error {
	id, err := decodeAck(b)
	pk.PacketID = id
	return err
}

// UnsubackPacket acknowledges an UNSUBSCRIBE.
type UnsubackPacket struct{ PacketID uint16 }

func (pk *UnsubackPacket) Encode() ([]byte, error) { return encodeAck(Unsuback, pk.PacketID) }
func (pk *UnsubackPacket) Decode(_ FixedHeader, b []byte) error {
	id, err := decodeAck(b)
	pk.PacketID = id
	return err
}
