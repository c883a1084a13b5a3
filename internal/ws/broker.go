package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/history"
	"github.com/newschat-dev/newschat/internal/rag"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// Broker upgrades WebSocket connections and relays conversation events
// between clients and the query pipeline.
type Broker struct {
	hub          *Hub
	log          *history.Log
	orchestrator *rag.Orchestrator
	upgrader     websocket.Upgrader
}

// NewBroker creates a stream broker.
func NewBroker(hub *Hub, log *history.Log, orchestrator *rag.Orchestrator) *Broker {
	return &Broker{
		hub:          hub,
		log:          log,
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles the WebSocket upgrade and connection lifecycle.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return
	}

	conn := b.hub.NewConnection(ws)
	go b.writePump(conn)
	b.readPump(r.Context(), conn)
}

func (b *Broker) readPump(ctx context.Context, conn *Connection) {
	defer func() {
		b.hub.Leave(conn)
		_ = conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMsgSize)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read error", "error", err, "connection_id", conn.ID)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			b.sendError(conn, "Invalid message format")
			continue
		}

		switch env.Event {
		case eventJoinSession:
			b.handleJoin(ctx, conn, env.Data)
		case eventSendMessage:
			// Queries run concurrently with further reads; two
			// concurrent queries on one session may interleave
			// their transcript writes, which the log accepts.
			go b.handleSendMessage(ctx, conn, env.Data)
		case eventClearSession:
			b.handleClear(ctx, conn, env.Data)
		default:
			b.sendError(conn, "Unknown event: "+env.Event)
		}
	}
}

func (b *Broker) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleJoin subscribes the connection to a session room and replies
// with the session's current history, to the joiner only.
func (b *Broker) handleJoin(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		b.sendError(conn, "Session ID required")
		return
	}

	b.hub.Join(conn, payload.SessionID)

	messages, err := b.log.Read(ctx, payload.SessionID, 0)
	if err != nil {
		slog.Error("Failed to load chat history", "error", err, "session_id", payload.SessionID)
		b.sendError(conn, "Failed to load chat history")
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	b.send(conn, marshalEvent(eventChatHistory, historyPayload{Messages: messages}))
}

// handleSendMessage relays one streaming query: typing on for the whole
// room, pipeline events to the sender, then exactly one typing-off.
func (b *Broker) handleSendMessage(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" || payload.Message == "" {
		b.sendError(conn, "Session ID and message required")
		return
	}
	if conn.SessionID() != payload.SessionID {
		b.sendError(conn, "Join the session before sending messages")
		return
	}

	sessionID := payload.SessionID
	b.hub.Broadcast(sessionID, marshalEvent(eventTyping, typingPayload{IsTyping: true}))
	defer b.hub.Broadcast(sessionID, marshalEvent(eventTyping, typingPayload{IsTyping: false}))

	// The generation deliberately outlives this connection: a client
	// dropping mid-stream must not lose the accumulated assistant
	// message, so the pipeline runs on an uncancellable context.
	events := b.orchestrator.QueryStream(context.WithoutCancel(ctx), sessionID, payload.Message)
	for event := range events {
		switch event.Type {
		case rag.EventChunk:
			b.send(conn, marshalEvent(eventMessageChunk, chunkPayload{
				Content:   event.Content,
				SessionID: sessionID,
			}))
		case rag.EventComplete:
			b.send(conn, marshalEvent(eventMessageComplete, completePayload{
				Sources:          event.Sources,
				RelevantArticles: event.RelevantArticles,
				SessionID:        sessionID,
			}))
		case rag.EventError:
			b.sendError(conn, event.Message)
		}
	}
}

// handleClear clears the session transcript and notifies the room.
func (b *Broker) handleClear(ctx context.Context, conn *Connection, data json.RawMessage) {
	var payload clearPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		b.sendError(conn, "Session ID required")
		return
	}

	if err := b.log.Clear(ctx, payload.SessionID); err != nil {
		slog.Error("Failed to clear session", "error", err, "session_id", payload.SessionID)
		b.sendError(conn, "Failed to clear session")
		return
	}

	b.hub.Broadcast(payload.SessionID, marshalEvent(eventSessionCleared, clearedPayload{
		SessionID: payload.SessionID,
	}))
}

// send queues an event for one connection. Events for a slow consumer
// or a connection that disconnected mid-query are dropped; the query
// itself keeps running either way.
func (b *Broker) send(conn *Connection, payload []byte) {
	if !conn.trySend(payload) {
		slog.Warn("Dropping event to slow or closed connection", "connection_id", conn.ID)
	}
}

func (b *Broker) sendError(conn *Connection, message string) {
	b.send(conn, marshalEvent(eventError, errorPayload{Message: message}))
}
