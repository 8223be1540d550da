package packets

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// encodeString writes a length-prefixed UTF-8 string: a big-endian u16
// length followed by the raw bytes.
func encodeString(buf *bytes.Buffer, s string) {
	encodeBytes(buf, []byte(s))
}

// encodeBytes writes a length-prefixed byte sequence.
func encodeBytes(buf *bytes.Buffer, b []byte) {
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(b)))
	buf.Write(lb[:])
	buf.Write(b)
}

// decodeBytes reads a length-prefixed byte sequence from b starting at
// offset, returning the payload and the number of bytes consumed.
func decodeBytes(b []byte, offset int) ([]byte, int, error) {
	if offset+2 > len(b) {
		return nil, 0, ErrStringTooLong
	}
	n := int(binary.BigEndian.Uint16(b[offset : offset+2]))
	if offset+2+n > len(b) {
		return nil, 0, ErrStringTooLong
	}
	return b[offset+2 : offset+2+n], 2 + n, nil
}

// decodeString reads a length-prefixed UTF-8 string, rejecting invalid
// UTF-8 and embedded NUL bytes per MQTT 3.1.1 section 1.5.3.
func decodeString(b []byte, offset int) (string, int, error) {
	raw, n, err := decodeBytes(b, offset)
	if err != nil {
		return "", 0, err
	}
	if !utf8.Valid(raw) || strings.IndexByte(string(raw), 0) >= 0 {
		return "", 0, ErrMalformedString
	}
	return string(raw), n, nil
}

func decodeUint16(b []byte, offset int) (uint16, error) {
	if offset+2 > len(b) {
		return 0, ErrStringTooLong
	}
	return binary.BigEndian.Uint16(b[offset : offset+2]), nil
}

func encodeUint16(buf *bytes.Buffer, v uint16) {
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], v)
	buf.Write(lb[:])
}
