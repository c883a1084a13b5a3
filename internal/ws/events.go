package ws

import (
	"encoding/json"

	"github.com/newschat-dev/newschat/internal/chat"
)

// Event names, inbound and outbound.
const (
	eventJoinSession     = "join_session"
	eventChatHistory     = "chat_history"
	eventSendMessage     = "send_message"
	eventTyping          = "typing"
	eventMessageChunk    = "message_chunk"
	eventMessageComplete = "message_complete"
	eventError           = "error"
	eventClearSession    = "clear_session"
	eventSessionCleared  = "session_cleared"
)

// envelope is the wire framing for every event in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

type sendMessagePayload struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type clearPayload struct {
	SessionID string `json:"sessionId"`
}

type historyPayload struct {
	Messages []chat.Message `json:"messages"`
}

type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type chunkPayload struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

type completePayload struct {
	Sources          []chat.Source `json:"sources"`
	RelevantArticles int           `json:"relevantArticles"`
	SessionID        string        `json:"sessionId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type clearedPayload struct {
	SessionID string `json:"sessionId"`
}

// marshalEvent frames an outbound event. Marshal failures cannot happen
// for the payload types above, so the error is dropped.
func marshalEvent(event string, data any) []byte {
	raw, _ := json.Marshal(data)
	frame, _ := json.Marshal(envelope{Event: event, Data: raw})
	return frame
}
