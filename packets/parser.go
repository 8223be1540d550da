package packets

import (
	"bufio"
	"io"
)

// Parser reads whole MQTT control packets from a buffered byte stream,
// buffering until the fixed header (including its variable-length
// remaining-length field) is available, then until the full payload has
// arrived.
type Parser struct {
	r *bufio.Reader
}

// NewParser wraps r in a buffered reader sized for typical MQTT frames.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReaderSize(r, 4096)}
}

// ReadPacket blocks until one full control packet has arrived, then
// decodes it. It returns the fixed header alongside the typed packet so
// callers can inspect Dup/Qos/Retain without a second type switch.
func (p *Parser) ReadPacket() (FixedHeader, Packet, error) {
	var fh FixedHeader

	first, err := p.r.ReadByte()
	if err != nil {
		return fh, nil, err
	}
	if err := fh.Decode(first); err != nil {
		return fh, nil, err
	}

	remaining, _, err := decodeLength(p.r.ReadByte)
	if err != nil {
		return fh, nil, err
	}
	fh.Remaining = remaining

	payload := make([]byte, remaining)
	if remaining > 0 {
		if _, err := io.ReadFull(p.r, payload); err != nil {
			return fh, nil, err
		}
	}

	pk, err := newPacket(fh.Type)
	if err != nil {
		return fh, nil, err
	}
	if err := pk.Decode(fh, payload); err != nil {
		return fh, nil, err
	}
	return fh, pk, nil
}

// newPacket allocates a zero-valued packet for the given control type.
func newPacket(packetType byte) (Packet, error) {
	switch packetType {
	case Connect:
		return &ConnectPacket{}, nil
	case Connack:
		return &ConnackPacket{}, nil
	case Publish:
		return &PublishPacket{}, nil
	case Puback:
		return &PubackPacket{}, nil
	case Pubrec:
		return &PubrecPacket{}, nil
	case Pubrel:
		return &PubrelPacket{}, nil
	case Pubcomp:
		return &PubcompPacket{}, nil
	case Subscribe:
		return &SubscribePacket{}, nil
	case Suback:
		return &SubackPacket{}, nil
	case Unsubscribe:
		return &UnsubscribePacket{}, nil
	case Unsuback:
		return &UnsubackPacket{}, nil
	case Pingreq:
		return &PingreqPacket{}, nil
	case Pingresp:
		return &PingrespPacket{}, nil
	case Disconnect:
		return &DisconnectPacket{}, nil
	default:
		return nil, ErrInvalidFlags
	}
}
