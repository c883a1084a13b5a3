// Package api provides the unary HTTP surface of the chat backend.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/history"
	"github.com/newschat-dev/newschat/internal/rag"
	"github.com/newschat-dev/newschat/internal/session"
)

// Handler serves the /api/chat routes.
type Handler struct {
	sessions     *session.Store
	log          *history.Log
	orchestrator *rag.Orchestrator
}

// NewHandler creates the chat API handler.
func NewHandler(sessions *session.Store, log *history.Log, orchestrator *rag.Orchestrator) *Handler {
	return &Handler{sessions: sessions, log: log, orchestrator: orchestrator}
}

// RegisterRoutes mounts the chat routes on the router. The session
// middleware must already be installed.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/history", h.GetHistory)
		r.Post("/message", h.SendMessage)
		r.Get("/session", h.GetSession)
		r.Delete("/session", h.DeleteSession)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// GetHistory returns the session transcript, oldest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	messages, err := h.log.Read(r.Context(), sessionID, 0)
	if err != nil {
		slog.Error("Failed to retrieve chat history", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Failed to retrieve chat history")
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
		"count":     len(messages),
	})
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessage runs one unary query and returns the generated answer.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		Error(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.orchestrator.Query(r.Context(), sessionID, message)
	if err != nil {
		slog.Error("Failed to process message", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Failed to process your message")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessionId":        sessionID,
		"response":         result.Response,
		"sources":          result.Sources,
		"relevantArticles": result.RelevantArticles,
	})
}

// GetSession returns the session metadata.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	sess, err := h.sessions.Describe(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to describe session", "error", err, "session_id", sessionID)
		Error(w, statusFor(err), "Session not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessionId":   sessionID,
		"sessionInfo": sess,
	})
}

// DeleteSession clears the session transcript and metadata.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	if err := h.log.Clear(r.Context(), sessionID); err != nil {
		slog.Error("Failed to clear session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"message":   "Session cleared successfully",
	})
}
