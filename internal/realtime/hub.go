package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Inbound client actions.
const (
	ActionGesture  = "gesture"
	ActionActivate = "activate"
	ActionStorage  = "storage"
)

// Message is the envelope written to UI clients.
type Message struct {
	Topic     string    `json:"topic"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Action is a request sent by a UI client.
type Action struct {
	Action  string `json:"action"`
	Gesture string `json:"gesture,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ActionHandler executes client actions.
type ActionHandler interface {
	HandleAction(ctx context.Context, action Action) error
}

// ActionHandlerFunc adapts a function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, action Action) error

func (f ActionHandlerFunc) HandleAction(ctx context.Context, action Action) error {
	if f == nil {
		return nil
	}
	return f(ctx, action)
}

// Dependencies configure the hub.
type Dependencies struct {
	Actions     ActionHandler
	OnClients   func(n int)
	CheckOrigin func(r *http.Request) bool
	Logger      logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine events out to connected UI clients and feeds their gestures,
// toast clicks and storage signals back in.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]struct{}
	actions   ActionHandler
	onClients func(n int)
	upgrader  websocket.Upgrader
	logger    logger.Logger
	now       func() time.Time
}

var _ broadcaster.Broadcaster = (*Hub)(nil)

// NewHub returns a hub with no clients.
func NewHub(deps Dependencies) *Hub {
	checkOrigin := deps.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:   make(map[*client]struct{}),
		actions:   deps.Actions,
		onClients: deps.OnClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.OrNop(deps.Logger),
		now:    time.Now,
	}
}

// SetActions installs the handler for inbound client actions.
func (h *Hub) SetActions(actions ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = actions
}

// Broadcast writes event to every client. Slow clients are dropped.
func (h *Hub) Broadcast(_ context.Context, event broadcaster.Event) error {
	payload, err := json.Marshal(Message{Topic: event.Topic, Data: event.Payload, Timestamp: h.now().UTC()})
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("realtime: dropping slow client")
		h.remove(c)
	}
	return nil
}

// Show publishes a toast to UI clients.
func (h *Hub) Show(ctx context.Context, toast domain.Toast) error {
	return h.Broadcast(ctx, broadcaster.Event{Topic: broadcaster.TopicToastShow, Payload: toast})
}

// Hide withdraws a toast from UI clients.
func (h *Hub) Hide(ctx context.Context, id string) error {
	return h.Broadcast(ctx, broadcaster.Event{Topic: broadcaster.TopicToastHide, Payload: map[string]string{"id": id}})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("realtime: upgrade failed", logger.F("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.clientsChanged(n)
	h.logger.Debug("realtime: client connected", logger.F("clients", n))

	go h.writePump(c)
	h.readPump(context.WithoutCancel(r.Context()), c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.clientsChanged(n)
	h.logger.Debug("realtime: client disconnected", logger.F("clients", n))
}

func (h *Hub) clientsChanged(n int) {
	if h.onClients != nil {
		h.onClients(n)
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime: read failed", logger.F("error", err))
			}
			return
		}
		var action Action
		if err := json.Unmarshal(data, &action); err != nil || action.Action == "" {
			h.logger.Debug("realtime: invalid client action", logger.F("error", err))
			continue
		}
		h.mu.RLock()
		handler := h.actions
		h.mu.RUnlock()
		if handler == nil {
			continue
		}
		if err := handler.HandleAction(ctx, action); err != nil {
			h.logger.Debug("realtime: action failed",
				logger.F("action", action.Action),
				logger.F("error", err),
			)
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
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
