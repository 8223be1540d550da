package packets

import "bytes"

// ConnectPacket is the variable header and payload of an MQTT CONNECT
// control packet. MQTT 3.1.1 section 3.1.
type ConnectPacket struct {
	ProtocolName  string
	ProtocolLevel byte
	CleanSession  bool
	WillFlag      bool
	WillQos       byte
	WillRetain    bool
	UsernameFlag  bool
	PasswordFlag  bool
	Keepalive     uint16
	ClientID      string
	WillTopic     string
	WillMessage   []byte
	Username      string
	Password      []byte
}

func (pk *ConnectPacket) Encode() ([]byte, error) {
	var body bytes.Buffer
	encodeString(&body, pk.ProtocolName)
	body.WriteByte(pk.ProtocolLevel)

	var flags byte
	if pk.CleanSession {
		flags |= 1 << 1
	}
	if pk.WillFlag {
		flags |= 1 << 2
		flags |= pk.WillQos << 3
		if pk.WillRetain {
			flags |= 1 << 5
		}
	}
	if pk.PasswordFlag {
		flags |= 1 << 6
	}
	if pk.UsernameFlag {
		flags |= 1 << 7
	}
	body.WriteByte(flags)
	encodeUint16(&body, pk.Keepalive)

	encodeString(&body, pk.ClientID)
	if pk.WillFlag {
		encodeString(&body, pk.WillTopic)
		encodeBytes(&body, pk.WillMessage)
	}
	if pk.UsernameFlag {
		encodeString(&body, pk.Username)
	}
	if pk.PasswordFlag {
		encodeBytes(&body, pk.Password)
	}

	fh := FixedHeader{Type: Connect, Remaining: body.Len()}
	var out bytes.Buffer
	if err := fh.Encode(&out); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func (pk *ConnectPacket) Decode(_ FixedHeader, b []byte) error {
	off := 0

	name, n, err := decodeString(b, off)
	if err != nil {
		return ErrMalformedProtocolName
	}
	off += n
	pk.ProtocolName = name

	if off >= len(b) {
		return ErrMalformedProtocolLevel
	}
	pk.ProtocolLevel = b[off]
	off++

	if off >= len(b) {
		return ErrMalformedFlags
	}
	flags := b[off]
	off++
	if flags&1 != 0 {
		return ErrMalformedFlags
	}
	pk.CleanSession = flags&(1<<1) != 0
	pk.WillFlag = flags&(1<<2) != 0
	pk.WillQos = (flags >> 3) & 0x03
	pk.WillRetain = flags&(1<<5) != 0
	pk.PasswordFlag = flags&(1<<6) != 0
	pk.UsernameFlag = flags&(1<<7) != 0

	keepalive, err := decodeUint16(b, off)
	if err != nil {
		return err
	}
	off += 2
	pk.Keepalive = keepalive

	clientID, n, err := decodeString(b, off)
	if err != nil {
		return ErrMalformedClientID
	}
	off += n
	pk.ClientID = clientID

	if pk.WillFlag {
		topic, n, err := decodeString(b, off)
		if err != nil {
			return err
		}
		off += n
		pk.WillTopic = topic

		msg, n, err := decodeBytes(b, off)
		if err != nil {
			return err
		}
		off += n
		pk.WillMessage = append([]byte(nil), msg...)
	}

	if pk.UsernameFlag {
		user, n, err := decodeString(b, off)
		if err != nil {
			return err
		}
		off += n
		pk.Username = user
	}

	if pk.PasswordFlag {
		pass, n, err := decodeBytes(b, off)
		if err != nil {
			return err
		}
		off += n
		pk.Password = append([]byte(nil), pass...)
	}

	if off != len(b) {
		return ErrRemainingLengthMismatch
	}

	return pk.Validate()
}

// Validate applies the MQTT 3.1.1 CONNECT payload rules that are
// malformed-packet errors rather than a rejectable CONNACK. The
// protocol name and level are deliberately not checked here: a
// mismatch there is answered with CONNACK return code 1, which
// requires the caller to have a decoded packet in hand, so that check
// lives in the broker's handshake instead of failing the decode.
func (pk *ConnectPacket) Validate() error {
	if len(pk.ClientID) > 65535 {
		return ErrMalformedClientID
	}
	if pk.ClientID == "" && !pk.CleanSession {
		return ErrEmptyClientIDPersistent
	}
	if pk.WillFlag && pk.WillQos > 2 {
		return ErrInvalidQos
	}
	if !pk.WillFlag && (pk.WillQos != 0 || pk.WillRetain) {
		return ErrMalformedFlags
	}
	if pk.PasswordFlag && !pk.UsernameFlag {
		return ErrMalformedFlags
	}
	return nil
}
