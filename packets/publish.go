package packets

import "bytes"

// PublishPacket is the variable header and payload of an MQTT PUBLISH
// control packet. Dup/Qos/Retain live on the fixed header.
type PublishPacket struct {
	FixedHeader FixedHeader
	TopicName   string
	PacketID    uint16
	Payload     []byte
}

func (pk *PublishPacket) Encode() ([]byte, error) {
	if pk.FixedHeader.Qos > 0 && pk.PacketID == 0 {
		return nil, ErrMissingPacketID
	}
	if pk.FixedHeader.Qos == 0 && pk.PacketID != 0 {
		return nil, ErrSurplusPacketID
	}

	var body bytes.Buffer
	encodeString(&body, pk.TopicName)
	if pk.FixedHeader.Qos > 0 {
		encodeUint16(&body, pk.PacketID)
	}
	body.Write(pk.Payload)

	fh := pk.FixedHeader
	fh.Type = Publish
	fh.Remaining = body.Len()
	var out bytes.Buffer
	if err := fh.Encode(&out); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func (pk *PublishPacket) Decode(fh FixedHeader, b []byte) error {
	pk.FixedHeader = fh

	topic, n, err := decodeString(b, 0)
	if err != nil {
		return err
	}
	off := n
	pk.TopicName = topic

	if fh.Qos > 0 {
		id, err := decodeUint16(b, off)
		if err != nil {
			return ErrMissingPacketID
		}
		off += 2
		pk.PacketID = id
	}

	pk.Payload = append([]byte(nil), b[off:]...)
	return nil
}

// Copy returns a fresh PublishPacket carrying the same topic and payload
// but a zeroed fixed header and packet identifier, suitable for
// redelivery to a different subscriber at a different qos.
func (pk *PublishPacket) Copy() *PublishPacket {
	return &PublishPacket{
		TopicName: pk.TopicName,
		Payload:   append([]byte(nil), pk.Payload...),
	}
}
