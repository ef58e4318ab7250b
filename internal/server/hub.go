package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType names the document events broadcast to websocket clients.
type EventType string

const (
	EventDocumentUpdated EventType = "document.updated"
	EventCardStreaming   EventType = "card.streaming"
	EventCardDone        EventType = "card.done"
)

// Event is the wire format pushed to websocket subscribers.
type Event struct {
	Type      EventType `json:"type"`
	CardID    string    `json:"cardId,omitempty"`
	Version   int       `json:"version,omitempty"`
	Delta     string    `json:"delta,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans document events out to connected websocket clients. Writes
// go through a per-client channel so one slow client cannot stall the
// rest; a full channel drops the client.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and subscribes the connection until it
// closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan Event, 32)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("clients", count).Msg("websocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop discards inbound frames; clients are subscribers only. It
// exists to notice the close handshake.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// Broadcast pushes an event to every connected client. Clients whose
// buffers are full are dropped rather than waited on.
func (h *Hub) Broadcast(ev Event) {
	ev.Timestamp = time.Now()
	h.mu.Lock()
	var stalled []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()
	for _, c := range stalled {
		h.drop(c)
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.drop(c)
	}
}
