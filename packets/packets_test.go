package packets

import (
	"bytes"
	"io"
)

// byteReader wraps a fully-encoded packet for NewParser in tests.
func byteReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
