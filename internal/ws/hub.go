// Package ws provides the real-time transport: a hub of per-session
// rooms that fans generation events out to every subscriber of a
// conversation.
package ws

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/newschat-dev/newschat/internal/observability"
)

// Connection is a single WebSocket subscriber. A connection starts
// unjoined; joining a session moves it into that session's room, and it
// stays there until it disconnects.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu        sync.Mutex
	sessionID string
	closed    bool
}

// SessionID returns the session this connection has joined, or "" while
// unjoined.
func (c *Connection) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Connection) setSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// trySend queues a payload without blocking. It reports false when the
// connection has shut down or its buffer is full. Sending and shutdown
// share the mutex, so a send can never race the channel close: queries
// that outlive their client keep calling this safely and just lose the
// delivery.
func (c *Connection) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once.
func (c *Connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// Hub tracks connections and their session rooms.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	rooms       map[string]map[string]*Connection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]*Connection),
	}
}

// NewConnection wraps a websocket connection and registers it.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()

	observability.ConnectionOpened()
	slog.Info("Client connected", "connection_id", conn.ID)
	return conn
}

// Join moves a connection into a session's room. A connection belongs
// to at most one room; re-joining replaces the previous membership.
func (h *Hub) Join(conn *Connection, sessionID string) {
	h.mu.Lock()
	if prev := conn.SessionID(); prev != "" {
		h.removeFromRoom(prev, conn.ID)
	}
	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]*Connection)
	}
	h.rooms[sessionID][conn.ID] = conn
	roomCount := len(h.rooms)
	h.mu.Unlock()

	conn.setSessionID(sessionID)
	observability.SetActiveRooms(roomCount)
	slog.Info("Client joined session", "connection_id", conn.ID, "session_id", sessionID)
}

// Leave removes a connection from the hub and its room. No broadcast.
func (h *Hub) Leave(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, conn.ID)
	if sessionID := conn.SessionID(); sessionID != "" {
		h.removeFromRoom(sessionID, conn.ID)
	}
	roomCount := len(h.rooms)
	h.mu.Unlock()

	conn.shutdown()
	conn.setSessionID("")
	observability.ConnectionClosed()
	observability.SetActiveRooms(roomCount)
	slog.Info("Client disconnected", "connection_id", conn.ID)
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(sessionID, connID string) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// Broadcast delivers a payload to every subscriber of a session. Slow
// consumers with a full send buffer are skipped, as are connections
// already shut down; the websocket write deadline will catch genuinely
// dead peers.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.rooms[sessionID] {
		if !conn.trySend(payload) {
			slog.Warn("Dropping broadcast to slow or closed connection",
				"connection_id", conn.ID, "session_id", sessionID)
		}
	}
}
