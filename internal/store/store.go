// Package store provides the durable, authoritative message log.
// Unlike the cache tier it never expires data; it is the source of
// truth whenever the cache has nothing to say.
package store

import (
	"context"

	"github.com/newschat-dev/newschat/internal/chat"
)

// MessageStore defines the durable tier contract.
type MessageStore interface {
	// AppendMessage persists one message for a session.
	AppendMessage(ctx context.Context, sessionID string, msg *chat.Message) error

	// RecentMessages returns up to limit messages for a session,
	// newest-first as stored. Callers wanting oldest-first reverse
	// the result.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)

	// DeleteMessages removes every message for a session.
	DeleteMessages(ctx context.Context, sessionID string) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
