// Package realtime pushes live score updates and alerts to dashboard
// clients over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/metrics"
	"github.com/jmenichole/tiltcheck/internal/tilt"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served cross-origin from the extension; auth happens
	// at the API gateway in front of this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is the envelope pushed to clients.
type Event struct {
	Type string `json:"type"` // "score_update" or "alert"
	Data any    `json:"data"`
}

// client is one connected dashboard. A non-empty userID limits the feed
// to that user's sessions.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// Hub fans events out to connected clients. Slow clients are dropped
// rather than allowed to block the broadcast loop.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	events     chan envelope
	logger     *slog.Logger
}

type envelope struct {
	userID  string
	payload []byte
}

// NewHub creates a hub. Run must be started before broadcasting.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan envelope, 256),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			metrics.ActiveWebSocketClients.Inc()
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.ActiveWebSocketClients.Dec()
			}
		case ev := <-h.events:
			for c := range h.clients {
				if c.userID != "" && c.userID != ev.userID {
					continue
				}
				select {
				case c.send <- ev.payload:
				default:
					delete(h.clients, c)
					close(c.send)
					metrics.ActiveWebSocketClients.Dec()
				}
			}
		}
	}
}

// ScoreUpdated implements tilt.Broadcaster.
func (h *Hub) ScoreUpdated(s *tilt.Session) {
	h.emit(s.UserID, Event{Type: "score_update", Data: s})
}

// AlertTriggered implements tilt.Broadcaster.
func (h *Hub) AlertTriggered(a *alerts.Alert) {
	h.emit(a.UserID, Event{Type: "alert", Data: a})
}

// emit queues an event without blocking; if the hub is saturated the
// event is dropped (clients resync from the REST API).
func (h *Hub) emit(userID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.events <- envelope{userID: userID, payload: payload}:
	default:
		h.logger.Warn("event dropped, hub saturated", "type", ev.Type)
	}
}

// ServeWS upgrades the connection and registers the client.
// GET /v1/ws?user=<id> limits the feed to one user's sessions.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: c.Query("user"),
	}
	h.register <- cl

	go cl.writePump()
	go cl.readPump()
}

// readPump discards inbound frames; the socket is push-only. It exists to
// process control frames and detect the client going away.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
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
