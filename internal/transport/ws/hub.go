// Package ws streams tick results to dashboard clients over websockets.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"site-monitor/simulator/internal/auth"
	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Frame is the message sent to clients.
type Frame struct {
	Type string             `json:"type"`
	Data *domain.TickResult `json:"data,omitempty"`
}

type client struct {
	conn      *websocket.Conn
	principal domain.Principal
	send      chan []byte
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

// Run broadcasts every result from ch until ch closes or ctx ends.
func (h *Hub) Run(ctx context.Context, ch <-chan *domain.TickResult) {
	defer h.closeAll()
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast(res)
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast sends each client its filtered view of res. Clients that cannot
// keep up are disconnected.
func (h *Hub) Broadcast(res *domain.TickResult) {
	var slow []*client

	// Sends happen under the read lock so remove cannot close a channel
	// mid-send.
	h.mu.RLock()
	for c := range h.clients {
		payload, err := json.Marshal(Frame{Type: "tick", Data: auth.VisibleTick(c.principal, res)})
		if err != nil {
			h.logger.Error("failed to encode frame", zap.Error(err))
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("websocket client too slow, dropping",
			zap.String("user", c.principal.Username))
		h.remove(c)
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and registers the client under p.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, principal: p, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	metrics.LiveClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("user", p.Username),
		zap.String("remote_addr", r.RemoteAddr))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.LiveClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.remove(c)
	}
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
