package broker

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/byiringiro-aloys/mqtt-core-service/auth"
	"github.com/byiringiro-aloys/mqtt-core-service/config"
	"github.com/byiringiro-aloys/mqtt-core-service/qos"
	"github.com/byiringiro-aloys/mqtt-core-service/retained"
	"github.com/byiringiro-aloys/mqtt-core-service/session"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/store/memory"
	"github.com/byiringiro-aloys/mqtt-core-service/system"
	"github.com/byiringiro-aloys/mqtt-core-service/topic"
	"github.com/byiringiro-aloys/mqtt-core-service/transport"
)

// Options configures a Server. Config holds the declarative surface
// (ports, limits); Auth and Persistent are injected collaborators the
// specification treats as pluggable.
type Options struct {
	Config     *config.Options
	Auth       auth.Provider
	Persistent store.PersistentStore
	Log        *slog.Logger
}

func (o *Options) ensureDefaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Auth == nil {
		o.Auth = auth.AllowAll{}
	}
	if o.Persistent == nil {
		o.Persistent = memory.New()
	}
	if o.Log == nil {
		o.Log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
}

// Server is the MQTT broker orchestrator: it owns the topic index,
// retained store, session store and QoS engine, and drives every
// accepted connection through the CONNECT handshake and packet dispatch.
type Server struct {
	opts Options

	Topics   *topic.Index
	Retained *retained.Store
	Sessions *session.Store
	QoS      *qos.Engine
	Auth     auth.Provider
	Store    store.PersistentStore
	Info     *system.Info
	Log      *slog.Logger

	mu          sync.RWMutex
	listeners   []transport.Listener
	clients     map[string]*Client // by connection id
	clientsByID map[string]*Client // by bound client-id

	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Server. It does not start accepting connections;
// call AddListener then Serve.
func New(opts Options) *Server {
	opts.ensureDefaults()

	s := &Server{
		opts:        opts,
		Topics:      topic.New(),
		Retained:    retained.New(),
		Auth:        opts.Auth,
		Store:       opts.Persistent,
		Info:        system.New("3.1.1"),
		Log:         opts.Log,
		clients:     make(map[string]*Client),
		clientsByID: make(map[string]*Client),
		done:        make(chan struct{}),
	}

	s.Sessions = session.NewStore(session.Options{
		Persistent:     s.Store,
		QueueLimit:     opts.Config.Performance.MessageQueueLimit,
		ExpiryInterval: opts.Config.Persistence.SessionExpiryInterval,
		Log:            s.Log,
	})

	s.QoS = qos.New(qos.Config{
		RetryInterval: opts.Config.Performance.RetryInterval,
		MaxRetries:    opts.Config.Performance.MaxRetries,
		Log:           s.Log,
	})

	return s
}

// AddListener registers a transport.Listener to be served once Serve is
// called.
func (s *Server) AddListener(l transport.Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Serve starts every registered listener and the QoS retry sweep, each
// in its own goroutine, and returns immediately.
func (s *Server) Serve() {
	s.mu.RLock()
	listeners := append([]transport.Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		l := l
		go l.Serve(s.establish)
	}
	go s.retryLoop()

	s.Log.Info("broker: serving", "listeners", len(listeners))
}

// Close stops accepting new connections, closes every live connection,
// and closes the persistence collaborator.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.RLock()
		listeners := append([]transport.Listener(nil), s.listeners...)
		clients := make([]*Client, 0, len(s.clients))
		for _, c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.RUnlock()

		for _, l := range listeners {
			l.Close()
		}
		for _, c := range clients {
			c.Close()
		}
		s.Sessions.Close()
	})
	return s.Store.Close()
}

func (s *Server) retryLoop() {
	interval := s.opts.Config.Performance.RetryInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.runRetryScan()
		}
	}
}

func (s *Server) runRetryScan() {
	s.mu.RLock()
	sessions := make([]*session.Session, 0, len(s.clientsByID))
	for _, c := range s.clientsByID {
		if sess := c.Session(); sess != nil {
			sessions = append(sessions, sess)
		}
	}
	s.mu.RUnlock()

	s.QoS.RetryScan(sessions, s.resolveSender, func(clientID string, in *session.Inflight) {
		s.Log.Warn("qos: retry budget exhausted, dropping inflight message", "client", clientID, "packet_id", in.PacketID, "err", newError(KindTimeout, ErrRetryExhausted))
	})
}

func (s *Server) resolveSender(clientID string) (qos.Sender, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clientsByID[clientID]
	if !ok || c.isClosed() {
		return nil, false
	}
	return c, true
}

func (s *Server) registerClient(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := s.opts.Config.Server.MaxConnections
	if max > 0 && len(s.clients) >= max {
		return false
	}
	s.clients[c.ID] = c
	return true
}

func (s *Server) bindClientID(c *Client) {
	s.mu.Lock()
	if prior, ok := s.clientsByID[c.clientID]; ok && prior != c {
		prior.Close()
	}
	s.clientsByID[c.clientID] = c
	s.mu.Unlock()
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ID)
	if s.clientsByID[c.clientID] == c {
		delete(s.clientsByID, c.clientID)
	}
	s.mu.Unlock()
}
