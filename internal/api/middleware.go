package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/session"
)

// SessionHeader carries the session id on requests and responses.
const SessionHeader = "X-Session-Id"

type contextKey int

const sessionIDKey contextKey = iota

// SessionIDFromContext extracts the session id placed by the session
// middleware.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionMiddleware resolves the caller's session: taken from the
// X-Session-Id header or the sessionId query parameter, generated when
// absent, created in the cache tier on first contact, and echoed back
// in the response header.
func SessionMiddleware(sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if sessionID == "" {
				sessionID = r.URL.Query().Get("sessionId")
			}
			if sessionID == "" {
				sessionID = uuid.New().String()
				slog.Info("Creating new session", "session_id", sessionID)
			}

			exists, err := sessions.Exists(r.Context(), sessionID)
			if err != nil {
				slog.Error("Session lookup failed", "error", err, "session_id", sessionID)
				Error(w, http.StatusServiceUnavailable, "Session service unavailable")
				return
			}
			if !exists {
				if _, err := sessions.Create(r.Context(), sessionID); err != nil {
					slog.Error("Session creation failed", "error", err, "session_id", sessionID)
					Error(w, http.StatusServiceUnavailable, "Session service unavailable")
					return
				}
			}

			w.Header().Set(SessionHeader, sessionID)
			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusFor maps the internal failure taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrCacheUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
