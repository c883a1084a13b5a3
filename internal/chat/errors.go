package chat

import "errors"

// Failure taxonomy shared across components. Transports collapse these to
// short human-readable messages; the distinctions exist for logs and
// metrics, not for end users.
var (
	// ErrSessionNotFound is returned when session metadata does not
	// exist in the cache tier (never created, expired, or cleared).
	ErrSessionNotFound = errors.New("session not found")

	// ErrCacheUnavailable is returned when the cache tier cannot be
	// reached. Session metadata has no durable fallback, so session
	// operations surface it; message reads fall back silently.
	ErrCacheUnavailable = errors.New("cache tier unavailable")

	// ErrPersistence is returned when the durable write of a message
	// fails. The enclosing append fails: silently losing a message is
	// not acceptable.
	ErrPersistence = errors.New("durable message write failed")

	// ErrClearIncomplete is returned when durable deletion succeeded
	// but the cache tier entries could not be removed. Stale cached
	// messages stay visible until their TTL, which operators need to
	// know about since the cache wins on hit.
	ErrClearIncomplete = errors.New("session clear incomplete: cache entries not removed")

	// ErrRetrieval is returned when embedding or vector search fails.
	// It aborts the current query only; session state is untouched.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration is returned when the generation provider fails
	// before producing a complete answer.
	ErrGeneration = errors.New("generation failed")
)
