package broker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/byiringiro-aloys/mqtt-core-service/packets"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/transport"
)

// Client is one accepted connection, bound to a Session once its CONNECT
// completes. A Session may outlive any number of Clients; a Client never
// outlives its underlying transport connection.
type Client struct {
	ID       string // connection-id, unique per accept
	ListenID string

	conn *transport.Conn

	mu            sync.Mutex
	clientID      string
	session       *session.Session
	authenticated bool
	keepalive     uint16
	connectedAt   time.Time
	lastActivity  atomic.Int64 // unix nanos

	writeMu sync.Mutex
	closed  atomic.Bool
	once    sync.Once
}

// newClient allocates a connection-scoped Client with a fresh connection
// id, matching the teacher's own use of rs/xid for default identifiers.
func newClient(conn *transport.Conn, listenID string) *Client {
	c := &Client{
		ID:          xid.New().String(),
		ListenID:    listenID,
		conn:        conn,
		connectedAt: time.Now(),
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

// ClientID returns the bound MQTT client identifier, empty until CONNECT
// completes.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

func (c *Client) bind(clientID string, sess *session.Session, keepalive uint16) {
	c.mu.Lock()
	c.clientID = clientID
	c.session = sess
	c.keepalive = keepalive
	c.mu.Unlock()
}

func (c *Client) setAuthenticated(v bool) {
	c.mu.Lock()
	c.authenticated = v
	c.mu.Unlock()
}

func (c *Client) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Client) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Send encodes and writes pk, serialized against concurrent writers (the
// QoS retry sweep and the dispatch loop may both write to the same
// connection). It satisfies qos.Sender.
func (c *Client) Send(pk packets.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WritePacket(pk)
}

// Close closes the underlying connection exactly once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		c.conn.Close()
	})
}

func (c *Client) isClosed() bool {
	return c.closed.Load()
}
