// Package ws pushes real-time events to connected browsers. Each user is
// a topic ("user:{id}"); a connection is subscribed to its own user topic
// at upgrade time, so a pharmacy dashboard and a patient app both just
// open /api/ws and receive what is theirs.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/caresync/caresync/internal/platform/auth"
)

// Event is one real-time message pushed to a client.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Publisher is the narrow interface domain services use to push events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// UserTopic names the private topic of one user.
func UserTopic(userID uuid.UUID) string {
	return "user:" + userID.String()
}

type client struct {
	topics []string
	send   chan []byte
}

// Hub fans events out to subscribed connections. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	byTopic map[string]map[*client]struct{}
	all     map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		byTopic: make(map[string]map[*client]struct{}),
		all:     make(map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[c] = struct{}{}
	for _, topic := range c.topics {
		if h.byTopic[topic] == nil {
			h.byTopic[topic] = make(map[*client]struct{})
		}
		h.byTopic[topic][c] = struct{}{}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for _, topic := range c.topics {
		if subs, ok := h.byTopic[topic]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.byTopic, topic)
			}
		}
	}
	delete(h.all, c)
	close(c.send)
}

// Broadcast delivers an event to every connection on the topic. Clients
// with a full buffer are skipped rather than blocked on.
func (h *Hub) Broadcast(topic string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Topic = topic
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byTopic[topic] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Publish implements Publisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of connections on one topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTopic[topic])
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the HTTP layer.
		return true
	},
}

// Handler upgrades authenticated HTTP requests to websocket connections.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/ws", h.Connect)
}

// Connect upgrades the request and subscribes the connection to the
// caller's own user topic.
func (h *Handler) Connect(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		topics: []string{UserTopic(userID)},
		send:   make(chan []byte, 256),
	}
	h.hub.register(cl)

	go h.writePump(cl, conn)
	go h.readPump(cl, conn)
	return nil
}

// readPump drains inbound frames until the connection drops. Clients do
// not send application messages; reads only serve ping/close handling.
func (h *Handler) readPump(cl *client, conn *gorillaws.Conn) {
	defer func() {
		h.hub.unregister(cl)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(cl *client, conn *gorillaws.Conn) {
	defer conn.Close()
	for message := range cl.send {
		if err := conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
			return
		}
	}
}
