// Package session manages conversation session metadata.
//
// Session metadata is soft state: it lives only in the cache tier and is
// destroyed by TTL expiry or an explicit clear. There is no durable
// fallback, so a cache outage makes every operation here fail.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/newschat-dev/newschat/internal/cache"
	"github.com/newschat-dev/newschat/internal/chat"
)

const (
	fieldID           = "id"
	fieldCreatedAt    = "createdAt"
	fieldLastActivity = "lastActivity"
	fieldMessageCount = "messageCount"
)

// Store manages session lifecycle on top of the cache tier.
type Store struct {
	cache *cache.Redis
}

// NewStore creates a session store.
func NewStore(c *cache.Redis) *Store {
	return &Store{cache: c}
}

// Create writes fresh session metadata with a zero message count and
// arms the TTL. Recreating an existing id resets it, so callers should
// check Exists first when they must not clobber a live session.
func (s *Store) Create(ctx context.Context, sessionID string) (*chat.Session, error) {
	now := time.Now().UTC()
	sess := &chat.Session{
		ID:           sessionID,
		CreatedAt:    now,
		LastActivity: now,
		MessageCount: 0,
	}

	fields := map[string]any{
		fieldID:           sess.ID,
		fieldCreatedAt:    sess.CreatedAt.Format(time.RFC3339Nano),
		fieldLastActivity: sess.LastActivity.Format(time.RFC3339Nano),
		fieldMessageCount: 0,
	}
	if err := s.cache.SetHash(ctx, cache.SessionKey(sessionID), fields); err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	return sess, nil
}

// Exists reports whether session metadata is present in the cache tier.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.cache.Exists(ctx, cache.SessionKey(sessionID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	return ok, nil
}

// Touch refreshes lastActivity and re-arms the session TTL. Called after
// every successful message write.
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	key := cache.SessionKey(sessionID)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.cache.SetHashField(ctx, key, fieldLastActivity, now); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	if err := s.cache.Expire(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	return nil
}

// IncrementMessageCount adds one to the session's message counter.
// Concurrent queries against the same session may interleave here; the
// counter is monotonic but not serialized with the list push.
func (s *Store) IncrementMessageCount(ctx context.Context, sessionID string) error {
	if _, err := s.cache.IncrHashField(ctx, cache.SessionKey(sessionID), fieldMessageCount, 1); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	return nil
}

// Describe returns the session metadata, or chat.ErrSessionNotFound if
// the session never existed or its TTL expired.
func (s *Store) Describe(ctx context.Context, sessionID string) (*chat.Session, error) {
	fields, err := s.cache.GetHash(ctx, cache.SessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrCacheUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, chat.ErrSessionNotFound
	}

	sess := &chat.Session{ID: fields[fieldID]}
	if sess.ID == "" {
		sess.ID = sessionID
	}
	if t, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err == nil {
		sess.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields[fieldLastActivity]); err == nil {
		sess.LastActivity = t
	}
	if n, err := strconv.Atoi(fields[fieldMessageCount]); err == nil {
		sess.MessageCount = n
	}
	return sess, nil
}
