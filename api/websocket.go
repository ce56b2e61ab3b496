package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"web/polaris/events"
	"web/polaris/metrics"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub streams session events to WebSocket clients.
type Hub struct {
	subscriber events.Subscriber
	config     WebSocketConfig
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	closeOnce sync.Once
	done      chan struct{}
}

func NewHub(subscriber events.Subscriber, logger *slog.Logger) *Hub {
	return &Hub{
		subscriber: subscriber,
		config:     DefaultWebSocketConfig(),
		logger:     logger,
		clients:    make(map[*client]struct{}),
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams the events of sessionID until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	if h.subscriber == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		done:      make(chan struct{}),
	}

	unsubscribe, err := h.subscriber.Subscribe(sessionID, c.deliver)
	if err != nil {
		h.logger.Error("subscribe to session events failed", "session", sessionID, "error", err)
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()
	h.logger.Info("websocket connected", "session", sessionID)

	go c.writePump()
	c.readPump()

	unsubscribe()
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	metrics.ActiveWebSockets.Dec()
	h.logger.Info("websocket disconnected", "session", sessionID)
}

// deliver queues ev for the client. Events are dropped for clients that
// cannot keep up.
func (c *client) deliver(ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.hub.logger.Warn("dropping event for slow websocket client", "session", c.sessionID, "type", string(ev.Type))
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump only handles control frames; clients send nothing else.
func (c *client) readPump() {
	config := c.hub.config
	defer c.close()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error", "session", c.sessionID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	config := c.hub.config
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
