package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/readnest/readnest-server/models"
)

// Event names broadcast to subscribers.
const (
	EventRatingUpdated  = "rating updated"
	EventReadersUpdated = "readers count updated"
)

// Message is the wire envelope for broadcast events.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks connected websocket clients and fans broadcast messages out to
// all of them. Clients that cannot keep up are dropped rather than allowed
// to block the hub.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client lifecycle and broadcast events until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("websocket client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("websocket client disconnected")
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BookRated broadcasts the refreshed book after a rating mutation.
func (h *Hub) BookRated(book *models.BookWithOwner) {
	h.publish(EventRatingUpdated, book)
}

// ReadersCountChanged broadcasts the refreshed book after a read event.
func (h *Hub) ReadersCountChanged(book *models.BookWithOwner) {
	h.publish(EventReadersUpdated, book)
}

func (h *Hub) publish(event string, data interface{}) {
	select {
	case h.broadcast <- Message{Event: event, Data: data}:
	default:
		log.Warn().Str("event", event).Msg("broadcast queue full, dropping message")
	}
}
