package transport

import (
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
)

func TestTCPServeHandsConnectionToEstablish(t *testing.T) {
	l, err := NewTCP("tcp-test", "127.0.0.1:0", nil)
	require.NoError(t, err)

	established := make(chan *Conn, 1)
	go l.Serve(func(listenID string, c *Conn) {
		established <- c
	})
	t.Cleanup(l.Close)

	conn, err := net.Dial("tcp", l.listen.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	pingreq, err := (&packets.PingreqPacket{}).Encode()
	require.NoError(t, err)
	_, err = conn.Write(pingreq)
	require.NoError(t, err)

	select {
	case c := <-established:
		require.Equal(t, KindTCP, c.Kind)
		require.Equal(t, "tcp-test", c.ListenID)
	case <-time.After(time.Second):
		t.Fatal("establish was never invoked")
	}
}

func TestTCPCloseStopsAccepting(t *testing.T) {
	l, err := NewTCP("tcp-test", "127.0.0.1:0", nil)
	require.NoError(t, err)

	serveReturned := make(chan struct{})
	go func() {
		l.Serve(func(string, *Conn) {})
		close(serveReturned)
	}()

	l.Close()

	select {
	case <-serveReturned:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestWebSocketUpgradeRoundTripsMQTTFrames(t *testing.T) {
	l := NewWebSocket("ws-test", "127.0.0.1:18883", nil)

	serveReturned := make(chan struct{})
	go func() {
		l.Serve(func(listenID string, c *Conn) {
			_, pk, err := c.ReadPacket()
			if err != nil {
				return
			}
			if _, ok := pk.(*packets.PingreqPacket); ok {
				c.WritePacket(&packets.PingrespPacket{})
			}
		})
		close(serveReturned)
	}()
	t.Cleanup(func() {
		l.Close()
		<-serveReturned
	})

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", "127.0.0.1:18883", 50*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	u := url.URL{Scheme: "ws", Host: "127.0.0.1:18883", Path: "/"}
	dialer := websocket.Dialer{Subprotocols: []string{"mqtt"}}
	ws, _, err := dialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer ws.Close()

	pingreq, err := (&packets.PingreqPacket{}).Encode()
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, pingreq))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	op, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, op)

	pingresp, err := (&packets.PingrespPacket{}).Encode()
	require.NoError(t, err)
	require.Equal(t, pingresp, data)
}
