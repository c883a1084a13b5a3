// Package chat defines the core conversation types shared across the
// session store, message log, query pipeline, and transports.
package chat

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message generated by the assistant.
	RoleAssistant Role = "assistant"
)

// Source is a citation attached to an assistant message. It carries the
// metadata of one retrieved article plus its relevance score.
type Source struct {
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	URL         string  `json:"url,omitempty"`
	PublishedAt string  `json:"publishedAt,omitempty"`
	Score       float32 `json:"score"`
}

// Message is a single transcript entry. Messages are immutable once
// written; they are removed only when the whole session is cleared.
type Message struct {
	// ID is unique within the session.
	ID string `json:"id"`
	// Role is who wrote the message.
	Role Role `json:"role"`
	// Content is the text payload.
	Content string `json:"content"`
	// Timestamp is the server-assigned write time, used for ordering.
	Timestamp time.Time `json:"timestamp"`
	// Sources holds citations; only set on assistant messages.
	Sources []Source `json:"sources,omitempty"`
}

// Session holds the soft, TTL-bound metadata of one conversation.
// It lives only in the cache tier; the durable tier knows messages only.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	// MessageCount is monotonically non-decreasing and incremented
	// only by message log writes.
	MessageCount int `json:"messageCount"`
}
