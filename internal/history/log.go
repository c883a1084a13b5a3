// Package history implements the conversation message log: a cache-aside
// list over the cache tier with the durable store as source of truth.
//
// Writes go durable-first; the cache copy is best-effort. Reads prefer
// the cache and fall back to the durable tier when the cached list is
// missing, expired, or evicted; the three are indistinguishable and all
// handled the same way.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/newschat-dev/newschat/internal/cache"
	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/observability"
	"github.com/newschat-dev/newschat/internal/session"
	"github.com/newschat-dev/newschat/internal/store"
)

// DefaultReadLimit caps history reads when the caller passes no limit.
const DefaultReadLimit = 50

// Log is the dual-tier message log.
type Log struct {
	cache    *cache.Redis
	store    store.MessageStore
	sessions *session.Store
}

// NewLog creates a message log over the given tiers.
func NewLog(c *cache.Redis, s store.MessageStore, sessions *session.Store) *Log {
	return &Log{cache: c, store: s, sessions: sessions}
}

// Append persists a message and returns the stored copy with its
// server-assigned timestamp.
//
// The durable write is the durability boundary: its failure fails the
// call. Everything after it (the cache push, the counter bump, the
// session touch) degrades performance when it fails, not correctness,
// so those failures are logged and swallowed.
func (l *Log) Append(ctx context.Context, sessionID string, msg chat.Message) (*chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Timestamp = time.Now().UTC()

	if err := l.store.AppendMessage(ctx, sessionID, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrPersistence, err)
	}

	// A failed cache push degrades reads to the durable tier but must
	// not skip the session bookkeeping below; the list key and the
	// session hash can fail independently.
	if data, err := json.Marshal(msg); err != nil {
		slog.Warn("Failed to marshal message for cache", "error", err, "session_id", sessionID)
	} else if err := l.cache.PushFront(ctx, cache.MessagesKey(sessionID), string(data)); err != nil {
		slog.Warn("Cache push failed, history served from durable tier until next hit",
			"error", err, "session_id", sessionID)
	}

	if err := l.sessions.IncrementMessageCount(ctx, sessionID); err != nil {
		slog.Warn("Failed to increment session message count", "error", err, "session_id", sessionID)
	}
	if err := l.sessions.Touch(ctx, sessionID); err != nil {
		slog.Warn("Failed to touch session", "error", err, "session_id", sessionID)
	}

	return &msg, nil
}

// Read returns up to limit messages for a session, oldest first.
//
// A non-empty cache result wins. An empty or failed cache read falls
// back to the durable tier; the cache is not rehydrated on that path.
func (l *Log) Read(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	raw, err := l.cache.RangeOldestFirst(ctx, cache.MessagesKey(sessionID), limit)
	if err != nil {
		slog.Warn("Cache read failed, falling back to durable tier", "error", err, "session_id", sessionID)
	} else if len(raw) > 0 {
		messages := make([]chat.Message, 0, len(raw))
		for _, entry := range raw {
			var msg chat.Message
			if err := json.Unmarshal([]byte(entry), &msg); err != nil {
				// A corrupt entry poisons the whole cached list;
				// the durable tier is authoritative.
				slog.Warn("Corrupt cached message, falling back to durable tier",
					"error", err, "session_id", sessionID)
				messages = nil
				break
			}
			messages = append(messages, msg)
		}
		if messages != nil {
			observability.RecordHistoryRead("cache")
			return messages, nil
		}
	}

	recent, err := l.store.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("read durable messages: %w", err)
	}
	// Stored newest-first; the contract here is oldest-first.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	observability.RecordHistoryRead("durable")
	return recent, nil
}

// Clear removes the session's transcript from both tiers.
//
// Durable deletion goes first and its failure aborts the clear: cache
// entries must never outlive their authoritative copy as the only
// record. If the durable delete succeeds but the cache delete fails,
// stale cached messages stay visible until their TTL. That is reported
// as chat.ErrClearIncomplete rather than swallowed, because the cache
// wins on hit.
func (l *Log) Clear(ctx context.Context, sessionID string) error {
	if err := l.store.DeleteMessages(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrPersistence, err)
	}

	if err := l.cache.Delete(ctx, cache.SessionKey(sessionID), cache.MessagesKey(sessionID)); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrClearIncomplete, err)
	}

	slog.Info("Session cleared", "session_id", sessionID)
	return nil
}
