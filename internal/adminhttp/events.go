// Package adminhttp exposes the actor system's state over HTTP, per
// spec.md §6: a JSON inspection API plus a live WebSocket event stream,
// mirroring the teacher's internal/web server (ServeMux routing, a
// gorilla/websocket hub) adapted from mail-inbox notifications to actor
// lifecycle events.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roasbeef/agner/actor"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 256
)

// EventType enumerates the kinds of actor lifecycle events the hub
// broadcasts.
type EventType string

const (
	EventSpawned    EventType = "spawned"
	EventTerminated EventType = "terminated"
)

// Event is one actor-lifecycle notification pushed to every connected
// WebSocket client.
type Event struct {
	Type    EventType `json:"type"`
	ActorID string    `json:"actor_id"`
	Reason  string    `json:"reason,omitempty"`
	At      string    `json:"at"`
}

// Hub maintains the set of connected WebSocket clients and fans out
// Events to all of them, the actor-admin counterpart of the teacher's
// notification Hub.
type Hub struct {
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan Event

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a Hub. Call Run to start its loop.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan Event, 256),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run drives the hub's event loop until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				c.send(ev)
			}
			h.mu.RUnlock()
		}
	}
}

// Stop shuts down the hub and closes every connected client.
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues ev for delivery to every connected client. Never
// blocks: a full broadcast buffer silently drops the event.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
	}
}

// ExitHandler adapts a Hub into an actor.ExitHandler so every actor
// termination is broadcast automatically, alongside whatever other exit
// handling (e.g. logging) the system already performs.
func (h *Hub) ExitHandler() actor.ExitHandler {
	return actor.ExitHandlerFunc(func(info actor.ExitInfo) {
		h.Broadcast(Event{
			Type:    EventTerminated,
			ActorID: info.ID.String(),
			Reason:  info.Reason.Kind().String(),
			At:      time.Now().UTC().Format(time.RFC3339),
		})
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the connection and registers a client with the
// hub, per spec.md §6's /ws/events endpoint.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event stream not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := newWSClient(s.hub, conn)
	s.hub.register <- c

	go c.writePump()
	go c.readPump()
}

// wsClient is a single connected WebSocket admin client.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn

	out chan Event

	mu     sync.Mutex
	closed bool
}

func newWSClient(hub *Hub, conn *websocket.Conn) *wsClient {
	return &wsClient{
		hub:  hub,
		conn: conn,
		out:  make(chan Event, sendBufferSize),
	}
}

func (c *wsClient) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- ev:
	default:
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
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

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
