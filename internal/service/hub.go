package service

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/gofiber/contrib/websocket"
)

// ChannelClient is one live delivery channel. Outbound events go through a
// buffered queue drained by the connection's writer goroutine, which keeps
// per-channel emission order.
type ChannelClient struct {
	Conn   *websocket.Conn
	UserID string

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func NewChannelClient(conn *websocket.Conn, userID string) *ChannelClient {
	return &ChannelClient{
		Conn:   conn,
		UserID: userID,
		send:   make(chan []byte, 256),
	}
}

// Emit implements EventSink.
func (c *ChannelClient) Emit(ev *model.WSEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// Outbox is drained by the connection writer.
func (c *ChannelClient) Outbox() <-chan []byte {
	return c.send
}

// enqueue reports whether the event was queued. A full queue means the
// client stopped reading; the event is dropped and the slow-reader cleanup
// is left to the read deadline.
func (c *ChannelClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *ChannelClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub tracks live channels. Relaying is per-channel; the hub only exists for
// connection bookkeeping and operator broadcasts.
type Hub struct {
	clients    map[*ChannelClient]bool
	register   chan *ChannelClient
	unregister chan *ChannelClient
	broadcast  chan []byte
	mu         sync.RWMutex
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*ChannelClient]bool),
		register:   make(chan *ChannelClient),
		unregister: make(chan *ChannelClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Hub] channel connected for user %s (total: %d)", client.UserID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Hub] channel disconnected for user %s (total: %d)", client.UserID, total)

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.enqueue(data)
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) Register(client *ChannelClient) {
	h.register <- client
}

func (h *Hub) Unregister(client *ChannelClient) {
	h.unregister <- client
}

// Broadcast pushes an event to every connected channel. Used for operator
// notices only; relay traffic never goes through here.
func (h *Hub) Broadcast(ev *model.WSEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.broadcast <- data
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
