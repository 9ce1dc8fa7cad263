package sse

import (
	"context"
	"sync"

	"github.com/settlement-hub/settlement-hub/internal/domain/event"
)

// Client is one connected event stream. Account records who opened the
// stream; events themselves are broadcast, the payloads carry no secrets.
type Client struct {
	ClientID string
	Account  string
	Events   chan *event.Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(clientID, account string) *Client {
	return &Client{
		ClientID: clientID,
		Account:  account,
		Events:   make(chan *event.Event, 64),
		done:     make(chan struct{}),
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed when the client is unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub fans settlement events out to connected SSE clients. It implements
// event.Emitter; delivery is best effort and a slow client drops events
// rather than blocking the engine.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit broadcasts the event to every client subscribed to it.
func (h *Hub) Emit(ctx context.Context, evt *event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, evt)
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, evt *event.Event) bool {
	select {
	case c.Events <- evt:
		return true
	default:
		return false
	}
}
