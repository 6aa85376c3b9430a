// Package feed streams collision event batches to websocket clients.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/common"
)

const (
	writeTimeout = time.Second
	sendBuffer   = 64
)

// Hello is the first message a client receives.
type Hello struct {
	Client string `json:"client"`
}

// Batch is the message sent for every step that produced events.
type Batch struct {
	Step   uint64         `json:"step"`
	Events []EventMessage `json:"events"`
}

type EventMessage struct {
	Kind string `json:"kind"`
	A    uint64 `json:"a"`
	B    uint64 `json:"b"`
}

func NewBatch(step uint64, events []collision.Event) Batch {
	b := Batch{Step: step, Events: make([]EventMessage, 0, len(events))}
	for _, ev := range events {
		b.Events = append(b.Events, EventMessage{Kind: ev.Kind.String(), A: uint64(ev.A), B: uint64(ev.B)})
	}
	return b
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan any

	mu      sync.Mutex
	stopped bool
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{id: uuid.New().String(), conn: conn, send: make(chan any, buffer)}
}

// enqueue hands v to the client's writer without blocking. It reports false
// when the client is stopped or its queue is full.
func (c *client) enqueue(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.send)
	}
}

// Server is an http.Handler that upgrades every request to a websocket and
// fans published batches out to all connected clients. Each client has its
// own queue and writer goroutine, so Publish never waits on the network;
// clients whose queue fills up or whose write fails are dropped.
type Server struct {
	upgrader websocket.Upgrader
	log      common.Logger
	buffer   int

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	writers sync.WaitGroup
}

func NewServer(log common.Logger) *Server {
	if log == nil {
		log = common.NopLogger
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log,
		buffer:  sendBuffer,
		clients: make(map[string]*client),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("feed: upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newClient(conn, s.buffer)
	c.enqueue(Hello{Client: c.id})
	if !s.register(c) {
		_ = conn.Close()
		return
	}
	s.log.Info("feed: client connected", "client", c.id, "remote", r.RemoteAddr)
	go s.writeLoop(c)

	// the feed is one way; reading only notices the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(c.id)
				return
			}
		}
	}()
}

// register adds c unless the server is closed. A registered client counts
// as a running writer until its writeLoop returns.
func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c.id] = c
	s.writers.Add(1)
	return true
}

func (s *Server) writeLoop(c *client) {
	defer s.writers.Done()
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			s.log.Warn("feed: write failed, dropping client", "client", c.id, "err", err)
			s.drop(c.id)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
		time.Now().Add(writeTimeout))
}

// Publish queues one batch for every client and returns how many accepted
// it. A client with a full queue is dropped.
func (s *Server) Publish(step uint64, events []collision.Event) int {
	batch := NewBatch(step, events)

	s.mu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if !c.enqueue(batch) {
			s.log.Warn("feed: client too slow, dropping", "client", c.id, "step", step)
			s.drop(c.id)
			continue
		}
		sent++
	}
	return sent
}

// Clients returns the ids of connected clients.
func (s *Server) Clients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) drop(id string) {
	s.mu.Lock()
	c, ok := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()
	if ok {
		c.stop()
		s.log.Info("feed: client disconnected", "client", id)
	}
}

// Close stops every client, waits for the writers to send their close
// frames and refuses new clients.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	s.writers.Wait()
	return nil
}
