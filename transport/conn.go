// Package transport implements the MQTT connection layer: TCP (plain or
// TLS-wrapped) and WebSocket acceptors that frame a byte stream into
// whole MQTT control packets.
package transport

import (
	"net"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
)

// Kind identifies which transport carried a connection.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindTLS       Kind = "tls"
	KindWebSocket Kind = "ws"
)

// Conn is one accepted client connection, already framed into whole
// MQTT packets. It wraps a net.Conn regardless of transport kind, per
// the teacher's own treatment of TLS and WebSocket sockets as plain
// net.Conn once established.
type Conn struct {
	net.Conn
	Kind     Kind
	ListenID string
	parser   *packets.Parser
}

// NewConn wraps an accepted net.Conn for packet-level framing.
func NewConn(c net.Conn, kind Kind, listenID string) *Conn {
	return &Conn{Conn: c, Kind: kind, ListenID: listenID, parser: packets.NewParser(c)}
}

// ReadPacket blocks until one whole MQTT control packet has been framed
// off the underlying stream.
func (c *Conn) ReadPacket() (packets.FixedHeader, packets.Packet, error) {
	return c.parser.ReadPacket()
}

// WritePacket encodes and writes pk in full.
func (c *Conn) WritePacket(pk packets.Packet) error {
	b, err := pk.Encode()
	if err != nil {
		return err
	}
	_, err = c.Conn.Write(b)
	return err
}

// EstablishFunc is called once per accepted connection, in its own
// goroutine, by every listener kind.
type EstablishFunc func(listenID string, c *Conn)

// Listener is implemented by every acceptor (TCP, WebSocket).
type Listener interface {
	ID() string
	Serve(establish EstablishFunc)
	Close()
}
