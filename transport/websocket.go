package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrInvalidMessage is returned when a websocket frame does not carry a
// binary MQTT payload.
var ErrInvalidMessage = errors.New("transport: websocket message is not binary")

// WebSocket is a listener that accepts MQTT-over-WebSocket connections
// using binary frames and the "mqtt" subprotocol.
type WebSocket struct {
	id      string
	address string
	tlsCfg  *tls.Config

	server    *http.Server
	upgrader  websocket.Upgrader
	establish EstablishFunc
	end       uint32
}

// NewWebSocket constructs a WebSocket listener bound to address.
func NewWebSocket(id, address string, tlsCfg *tls.Config) *WebSocket {
	return &WebSocket{
		id:      id,
		address: address,
		tlsCfg:  tlsCfg,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"mqtt"},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

// ID returns the listener's configured identifier.
func (l *WebSocket) ID() string { return l.id }

// Serve starts the HTTP server backing the WebSocket upgrade handler and
// blocks until Close is called.
func (l *WebSocket) Serve(establish EstablishFunc) {
	l.establish = establish

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handle)
	l.server = &http.Server{
		Addr:         l.address,
		Handler:      mux,
		TLSConfig:    l.tlsCfg,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	if l.tlsCfg != nil {
		l.server.ListenAndServeTLS("", "")
	} else {
		l.server.ListenAndServe()
	}
}

func (l *WebSocket) handle(w http.ResponseWriter, r *http.Request) {
	c, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	kind := KindWebSocket
	l.establish(l.id, NewConn(&wsConn{c: c}, kind, l.id))
}

// Close gracefully shuts down the HTTP server.
func (l *WebSocket) Close() {
	if !atomic.CompareAndSwapUint32(&l.end, 0, 1) {
		return
	}
	if l.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l.server.Shutdown(ctx)
}

// wsConn adapts a gorilla websocket.Conn to net.Conn, carrying raw MQTT
// bytes inside binary frames. One MQTT packet may span multiple frames
// and one frame may carry multiple packets; packets.Parser's buffered
// read handles reassembly identically to a raw TCP stream.
type wsConn struct {
	c *websocket.Conn
	r io.Reader // unfinished binary frame, nil between frames
}

func (ws *wsConn) Read(p []byte) (int, error) {
	op, r, err := websocket.BinaryMessage, ws.r, error(nil)
	if r == nil {
		op, r, err = ws.c.NextReader()
	}
	if err != nil {
		return 0, err
	}
	if op != websocket.BinaryMessage {
		return 0, ErrInvalidMessage
	}
	ws.r = r

	var n int
	for {
		br, err := r.Read(p[n:])
		n += br
		if err != nil {
			if errors.Is(err, io.EOF) {
				ws.r = nil
				err = nil
			}
			return n, err
		}
		if n == len(p) {
			return n, nil
		}
	}
}

func (ws *wsConn) Write(p []byte) (int, error) {
	if err := ws.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ws *wsConn) Close() error                       { return ws.c.Close() }
func (ws *wsConn) LocalAddr() net.Addr                { return ws.c.LocalAddr() }
func (ws *wsConn) RemoteAddr() net.Addr                { return ws.c.RemoteAddr() }
func (ws *wsConn) SetDeadline(t time.Time) error      { return ws.c.UnderlyingConn().SetDeadline(t) }
func (ws *wsConn) SetReadDeadline(t time.Time) error  { return ws.c.UnderlyingConn().SetReadDeadline(t) }
func (ws *wsConn) SetWriteDeadline(t time.Time) error { return ws.c.UnderlyingConn().SetWriteDeadline(t) }
