package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/events"
)

const clientBuffer = 64

// Message is one encoded event ready to be written as an SSE frame.
type Message struct {
	Event string
	Data  []byte
}

// Client is one open admin event stream.
type Client struct {
	ID       string
	Username string
	Events   chan Message
}

// Hub fans lifecycle events out to connected admin streams. It implements
// events.Sink.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a stream. A closed hub returns a client whose channel is
// already closed.
func (h *Hub) Register(clientID, username string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:       clientID,
		Username: username,
		Events:   make(chan Message, clientBuffer),
	}
	if h.closed {
		close(c.Events)
		return c
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Str("username", username).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Publish encodes event once and queues it for every client, dropping it for
// clients whose buffer is full.
func (h *Hub) Publish(event *events.Event) {
	if h.ClientCount() == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	msg := Message{Event: string(event.Event), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Events <- msg:
		default:
			log.Warn().Str("client_id", c.ID).Str("event", msg.Event).Msg("SSE client buffer full, dropping event")
		}
	}
}

// Close ends every open stream and rejects new ones. Streams are long-lived
// requests, so this runs before the HTTP server shuts down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		close(c.Events)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
