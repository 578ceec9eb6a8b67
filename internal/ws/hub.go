package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// clientSendBuffer is how many events may queue for one connection before
// the hub gives up on it.
const clientSendBuffer = 16

// Client is a registered connection. Superadmin clients receive every
// tenant's events; the rest only receive their own tenant's.
type Client struct {
	Conn       Conn
	TenantID   string
	Superadmin bool
	send       chan []byte
}

// Message is routed to TenantID's clients and to superadmins.
// An empty TenantID goes to superadmins only.
type Message struct {
	TenantID string
	Payload  []byte
}

type Hub struct {
	clients    map[Conn]*Client
	register   chan *Client
	unregister chan Conn
	Broadcast  chan Message
	done       chan struct{}
	mutex      sync.Mutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan Conn),
		Broadcast:  make(chan Message, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled. Each client gets its own
// writer goroutine, so a slow connection never holds up the others.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn, client := range h.clients {
				delete(h.clients, conn)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			client.send = make(chan []byte, clientSendBuffer)
			h.mutex.Lock()
			h.clients[client.Conn] = client
			h.mutex.Unlock()
			go h.writePump(client)
			h.logger.Debug("ws client connected", zap.String("tenant_id", client.TenantID), zap.Bool("superadmin", client.Superadmin))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(client.send)
			}
			h.mutex.Unlock()

		case msg := <-h.Broadcast:
			h.mutex.Lock()
			for conn, client := range h.clients {
				if !client.Superadmin && (msg.TenantID == "" || client.TenantID != msg.TenantID) {
					continue
				}
				select {
				case client.send <- msg.Payload:
				default:
					h.logger.Warn("ws client too slow, disconnecting", zap.String("tenant_id", client.TenantID))
					delete(h.clients, conn)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Add registers c. It returns false once the hub has stopped.
func (h *Hub) Add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Remove unregisters conn. It never blocks after the hub has stopped.
func (h *Hub) Remove(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// writePump is the only writer of c.Conn. It closes the connection once the
// hub closes c.send; after a failed write it keeps draining until then.
func (h *Hub) writePump(c *Client) {
	defer c.Conn.Close()
	for payload := range c.send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("ws write failed", zap.String("tenant_id", c.TenantID), zap.Error(err))
			c.Conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// Publish marshals payload and queues it without blocking the caller.
// Events are dropped when the queue is full.
func (h *Hub) Publish(tenantID string, payload interface{}) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("ws payload marshal failed", zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- Message{TenantID: tenantID, Payload: msg}:
	default:
		h.logger.Warn("ws broadcast queue full, event dropped", zap.String("tenant_id", tenantID))
	}
}

// ClientCount is used by tests and the health endpoint.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}
