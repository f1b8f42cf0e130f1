package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"tictacshift/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. Must be less than the reader's pong wait.
	pingPeriod = 54 * time.Second

	sendBuffer = 64
)

// Client is one registered connection and its outbound queue.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub routes events to connections and to named groups of connections.
type Hub struct {
	clients map[string]*Client
	groups  map[string]map[string]struct{}
	mu      sync.RWMutex
}

// NewHub creates a new broadcast hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register adds a connection under id.
func (h *Hub) Register(id string, conn *websocket.Conn) *Client {
	c := &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = c
	return c
}

// Unregister removes a connection from the hub and from every group it joined.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for group, members := range h.groups {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	close(c.send)
}

// JoinGroup adds a connection to a group.
func (h *Hub) JoinGroup(id, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]struct{})
	}
	h.groups[group][id] = struct{}{}
}

// LeaveGroup removes a connection from a group.
func (h *Hub) LeaveGroup(id, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// members returns the connection ids in a group.
func (h *Hub) members(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	return ids
}

// Emit sends an event to one connection.
func (h *Hub) Emit(id, event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[id]; ok {
		h.deliver(c, event, data)
	}
}

// Broadcast sends an event to every connection in a group.
func (h *Hub) Broadcast(group, event string, payload any) {
	h.BroadcastExcept(group, "", event, payload)
}

// BroadcastExcept sends an event to every connection in a group except one.
func (h *Hub) BroadcastExcept(group, except, event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[group] {
		if id == except {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.deliver(c, event, data)
		}
	}
}

// deliver queues without blocking; a client that cannot keep up loses the message.
// Caller holds at least the read lock.
func (h *Hub) deliver(c *Client, event string, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("conn", c.id).Str("event", event).Msg("Send buffer full, dropping message")
	}
}

func encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(models.Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode event")
		return nil, false
	}
	return data, true
}

// WritePump drains the client's queue onto the websocket until Unregister
// closes it or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("Write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
