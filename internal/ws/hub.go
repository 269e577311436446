package ws

import (
	"encoding/json"
	"log"
	"sync"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/registry"
)

const eventMessage = "message"

// Hub owns the live connections and the presence registry. It exposes the
// best-effort push primitive the chat service uses for online recipients.
type Hub struct {
	registry *registry.Registry

	mu    sync.RWMutex
	conns map[string]*Client
}

// NewHub creates a hub around the given presence registry.
func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		registry: reg,
		conns:    make(map[string]*Client),
	}
}

// Attach registers the client as the user's live connection and starts its
// write loop. If the user already had a connection it is returned so the
// caller can close it; its late disconnect will not evict the new entry
// because Detach matches by connection id.
func (h *Hub) Attach(c *Client) *Client {
	var replaced *Client

	h.mu.Lock()
	if prevID, ok := h.registry.Lookup(c.UserID); ok {
		replaced = h.conns[prevID]
	}
	h.registry.Register(c.UserID, c.ID)
	h.conns[c.ID] = c
	h.mu.Unlock()

	c.Start()
	return replaced
}

// Detach removes the client. The registry entry is only cleared when it still
// points at this connection.
func (h *Hub) Detach(c *Client) {
	h.registry.Unregister(c.ID)
	h.mu.Lock()
	delete(h.conns, c.ID)
	h.mu.Unlock()
}

// PushIfOnline delivers the payload to the user's live connection, if any.
// An offline user or a failed write drops the payload; durability is the
// store's job, the push is a latency optimization only.
func (h *Hub) PushIfOnline(userID int, payload models.MessagePayload) bool {
	connID, ok := h.registry.Lookup(userID)
	if !ok {
		observability.IncPush("dropped")
		return false
	}

	h.mu.RLock()
	client := h.conns[connID]
	h.mu.RUnlock()
	if client == nil {
		observability.IncPush("dropped")
		return false
	}

	event := models.RelayEvent{Type: eventMessage, Payload: &payload}
	frame, err := json.Marshal(event)
	if err != nil {
		log.Printf("push marshal error: %v", err)
		observability.IncPush("failed")
		return false
	}

	if err := client.Send(frame); err != nil {
		log.Printf("push to user %d failed: %v", userID, err)
		observability.IncPush("failed")
		return false
	}

	observability.IncPush("delivered")
	return true
}

// Online reports the number of users with a live connection.
func (h *Hub) Online() int {
	return h.registry.Online()
}
