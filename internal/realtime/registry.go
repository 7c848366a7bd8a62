// Package realtime carries the live messaging channel: the WebSocket
// connection registry, session membership index, and session-scoped fan-out.
// It pushes domain events produced by the mentoring service; the HTTP fetch
// path remains ground truth for message history.
package realtime

import (
	"sync"

	"github.com/mindline/mindline/internal/domain/mentoring"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live WebSocket connection. A principal may hold several
// clients at once (multiple tabs or devices); each is tracked independently.
type Client struct {
	ID        string
	Principal mentoring.Principal
	send      chan []byte
	conn      Conn
}

func newClient(id string, p mentoring.Principal, conn Conn) *Client {
	return &Client{
		ID:        id,
		Principal: p,
		send:      make(chan []byte, 256),
		conn:      conn,
	}
}

// TrySend queues data for delivery without blocking. A client whose buffer
// is full misses the event; the fetch path recovers it.
func (c *Client) TrySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Registry tracks every live connection by id. All operations are
// thread-safe via sync.RWMutex.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// Unregister removes the client and closes its send channel, terminating
// its write pump.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	delete(r.clients, id)
	close(c.send)
}

func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Send queues data for the given connection. Returns false when the
// connection is gone or its buffer is full.
func (r *Registry) Send(id string, data []byte) bool {
	c, ok := r.Get(id)
	if !ok {
		return false
	}
	return c.TrySend(data)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
