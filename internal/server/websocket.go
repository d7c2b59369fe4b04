package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 64
)

// Message types pushed to clients.
const (
	MessageDocumentUpdated = "document_updated"
	MessageDocumentError   = "document_error"
	MessageDocumentRemoved = "document_removed"
	MessageRegistryChanged = "registry_changed"
)

// ErrCodeInvalidOrigin marks requests from origins that are not allowed.
const ErrCodeInvalidOrigin = "INVALID_ORIGIN"

// Message is a notification sent to websocket clients.
type Message struct {
	Type      string       `json:"type"`
	Path      string       `json:"path,omitempty"`
	Document  *types.Block `json:"document,omitempty"`
	Problems  []Problem    `json:"problems,omitempty"`
	Error     string       `json:"error,omitempty"`
	BlockType string       `json:"block_type,omitempty"`
	Change    string       `json:"change,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Client is one websocket connection.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans messages out to connected clients.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     logging.Logger
	mutex      sync.RWMutex
	closeOnce  sync.Once
	done       chan struct{}
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.WithComponent("websocket"),
		done:       make(chan struct{}),
	}
}

// Run delivers messages until ctx is cancelled or CloseAll is called.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.CloseAll()
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "Client disconnected", "clients", count)

		case message := <-h.broadcast:
			var slow []*Client
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()

			if len(slow) > 0 {
				h.mutex.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mutex.Unlock()
			}
		}
	}
}

// Broadcast queues msg for every client. Messages are dropped when the hub
// is closed or its queue is full.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal message", "type", msg.Type)
		return
	}

	select {
	case <-h.done:
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), nil, "Dropping message, queue full", "type", msg.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client and stops the hub.
func (h *Hub) CloseAll() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mutex.Unlock()
	})
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  s.hub,
	}
	if !s.hub.add(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx := conn.CloseRead(context.Background())
	client.writePump(ctx)
}

// writePump sends queued messages and pings until the connection or the
// send channel closes.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
