package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// RoleHealthWorker receives every labor alert broadcast
const RoleHealthWorker = "HEALTH_WORKER"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Identity describes the authenticated user behind a websocket connection
type Identity struct {
	UserID string
	Role   string
	Email  string
	Name   string
}

// Client represents a websocket connection
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity Identity
}

func (c *Client) isHealthWorker() bool {
	return c.identity.Role == RoleHealthWorker
}

// Hub maintains the set of active clients and routes alerts to them
type Hub struct {
	clients       map[*Client]bool
	healthWorkers map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	mu            sync.RWMutex
	observe       func(role string, delta float64)
	logger        zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		healthWorkers: make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		logger:        logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// ObserveConnections sets a callback invoked with +1/-1 as clients connect and leave.
// It must be set before Run.
func (h *Hub) ObserveConnections(observe func(role string, delta float64)) {
	h.observe = observe
}

// Run starts the hub's main loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.isHealthWorker() {
				h.healthWorkers[client] = true
			}
			if h.observe != nil {
				h.observe(client.identity.Role, 1)
			}
			total := len(h.healthWorkers)
			h.mu.Unlock()
			h.logger.Info().
				Str("user_id", client.identity.UserID).
				Str("role", client.identity.Role).
				Int("health_workers", total).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Info().
				Str("user_id", client.identity.UserID).
				Str("role", client.identity.Role).
				Msg("client disconnected")

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// removeLocked drops a client and closes its send channel once
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.healthWorkers, client)
	close(client.send)
	if h.observe != nil {
		h.observe(client.identity.Role, -1)
	}
}

// BroadcastToHealthWorkers sends message to every connected health worker
// and returns the number of recipients. Slow clients are dropped.
func (h *Hub) BroadcastToHealthWorkers(message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.healthWorkers {
		if h.deliverLocked(client, message) {
			sent++
		}
	}

	if sent == 0 {
		h.logger.Warn().Msg("no connected health workers to receive alert")
	} else {
		h.logger.Info().Int("recipients", sent).Msg("broadcasted alert to health workers")
	}
	return sent
}

// SendToUser sends message to every connection owned by userID
func (h *Hub) SendToUser(userID string, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients {
		if client.identity.UserID != userID {
			continue
		}
		if h.deliverLocked(client, message) {
			sent++
		}
	}
	return sent
}

func (h *Hub) deliverLocked(client *Client, message []byte) bool {
	select {
	case client.send <- message:
		return true
	default:
		h.logger.Warn().Str("user_id", client.identity.UserID).Msg("send buffer full, removing client")
		h.removeLocked(client)
		return false
	}
}

// ConnectedHealthWorkers returns number of connected health workers
func (h *Hub) ConnectedHealthWorkers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.healthWorkers)
}

// Serve registers an upgraded connection with the hub and starts its pumps
func (h *Hub) Serve(conn *websocket.Conn, identity Identity) {
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("user_id", c.identity.UserID).Msg("websocket read error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// Upgrade upgrades HTTP connection to WebSocket
func Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, responseHeader)
}
