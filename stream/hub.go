package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/hauntmesh/engine"
	"github.com/hupe1980/hauntmesh/logging"
)

// MessageTypeRound tags frames carrying a core.RoundEvent.
const MessageTypeRound = "round"

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ErrHubClosed is returned by Broadcast after the hub stopped.
var ErrHubClosed = errors.New("hub closed")

// Message is the envelope of every frame.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// HubOptions configures a Hub.
type HubOptions struct {
	// SendBuffer is the per-client frame queue. A client whose queue is full
	// is dropped.
	SendBuffer int
	Logger     logging.Logger
}

// Hub tracks WebSocket clients and broadcasts frames to all of them. The
// client set is owned by the Run goroutine.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	clients    map[*client]bool
	count      atomic.Int64
	sendBuffer int
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(optFns ...func(o *HubOptions)) *Hub {
	opts := HubOptions{
		SendBuffer: 256,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
		sendBuffer: opts.SendBuffer,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Add(1)
			h.logger.Debug("stream.client.connected", "clients", h.count.Load())
		case c := <-h.unregister:
			if h.clients[c] {
				h.remove(c)
				h.logger.Debug("stream.client.disconnected", "clients", h.count.Load())
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.remove(c)
					h.logger.Warn("stream.client.dropped", "reason", "send buffer full")
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Broadcast sends a frame to every client. Frames are dropped, not queued,
// when the hub is saturated.
func (h *Hub) Broadcast(msgType string, payload any) error {
	b, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("stream.broadcast.dropped", "type", msgType)
	}

	return nil
}

// Callback broadcasts every completed round.
func (h *Hub) Callback() engine.Callback {
	return engine.NewFunctionCallback(engine.CallbackAfterRound, func(_ context.Context, cc *engine.CallbackContext) error {
		if cc.Event == nil {
			return nil
		}
		return h.Broadcast(MessageTypeRound, cc.Event)
	})
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream.upgrade.failed", "error", err.Error())
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, h.sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames; it exists to process control frames and
// notice closed connections.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
