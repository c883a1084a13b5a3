// Package rag implements the query pipeline: embed the query, search
// the vector index, compose context, and generate an answer grounded in
// recent conversation history. The orchestrator owns no state of its
// own; it is a pure pipeline over injected dependencies.
package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/history"
	"github.com/newschat-dev/newschat/internal/observability"
	"github.com/newschat-dev/newschat/internal/provider"
)

const (
	// topK is the number of vector matches requested per query.
	topK = 5
	// historyLimit is how many transcript messages are fetched as
	// conversational memory.
	historyLimit = 10
	// promptHistoryWindow is how many of those are forwarded to the
	// generation provider.
	promptHistoryWindow = 6
)

const systemPromptFormat = `You are a smart and structured chatbot.
- Answer questions based on the provided news context.
- If the context doesn't contain relevant information, say so politely and suggest what you can help with instead.
- Keep responses concise, clear, and informative.
- Do NOT use markdown bold or italics.
- Instead, use plain text with bullet points, numbers, or line breaks for structure.
- Always keep answers well-formatted like a chatbot response.

Context from news articles: %s`

// userFacingError is what all pipeline failures collapse to at the
// transport boundary.
const userFacingError = "Failed to process your query. Please try again."

// Result is the outcome of a unary query.
type Result struct {
	Response         string        `json:"response"`
	Sources          []chat.Source `json:"sources"`
	RelevantArticles int           `json:"relevantArticles"`
}

// EventType discriminates streaming pipeline events.
type EventType string

const (
	// EventChunk carries one increment of generated text.
	EventChunk EventType = "chunk"
	// EventComplete closes a successful stream with its citations.
	EventComplete EventType = "complete"
	// EventError closes a failed stream. No assistant message has
	// been persisted when it fires.
	EventError EventType = "error"
)

// Event is one item of a streaming query's output sequence.
type Event struct {
	Type             EventType
	Content          string
	Sources          []chat.Source
	RelevantArticles int
	// Message is the short user-facing failure text for EventError.
	Message string
	// Err is the underlying failure, for logs only.
	Err error
}

// Orchestrator drives the retrieval-augmented query pipeline.
type Orchestrator struct {
	embedder provider.Embedder
	index    provider.VectorIndex
	gen      provider.Generator
	log      *history.Log
}

// NewOrchestrator creates a query orchestrator.
func NewOrchestrator(embedder provider.Embedder, index provider.VectorIndex, gen provider.Generator, log *history.Log) *Orchestrator {
	return &Orchestrator{embedder: embedder, index: index, gen: gen, log: log}
}

// retrieval holds the shared pipeline stages both variants run before
// generation.
type retrieval struct {
	matches []provider.Match
	context string
	history []chat.Message
}

func (o *Orchestrator) retrieve(ctx context.Context, sessionID, query string) (*retrieval, error) {
	vector, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", chat.ErrRetrieval, err)
	}

	// An empty result set is not an error; it yields the placeholder
	// context.
	matches, err := o.index.Query(ctx, vector, topK, true)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", chat.ErrRetrieval, err)
	}

	msgs, err := o.log.Read(ctx, sessionID, historyLimit)
	if err != nil {
		slog.Warn("Failed to read history for query, continuing without memory",
			"error", err, "session_id", sessionID)
		msgs = nil
	}

	return &retrieval{matches: matches, context: composeContext(matches), history: msgs}, nil
}

func (o *Orchestrator) buildMessages(query string, r *retrieval) []provider.ChatMessage {
	messages := make([]provider.ChatMessage, 0, promptHistoryWindow+2)
	messages = append(messages, provider.ChatMessage{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptFormat, r.context),
	})

	recent := r.history
	if len(recent) > promptHistoryWindow {
		recent = recent[len(recent)-promptHistoryWindow:]
	}
	for _, msg := range recent {
		role := "assistant"
		if msg.Role == chat.RoleUser {
			role = "user"
		}
		messages = append(messages, provider.ChatMessage{Role: role, Content: msg.Content})
	}

	return append(messages, provider.ChatMessage{Role: "user", Content: query})
}

// Query runs the unary pipeline: generate the full answer, then persist
// the user and assistant turns in that order.
//
// A persistence failure after a successful generation does not take the
// answer away from the caller; it is logged distinctly instead.
func (o *Orchestrator) Query(ctx context.Context, sessionID, query string) (*Result, error) {
	start := time.Now()

	r, err := o.retrieve(ctx, sessionID, query)
	if err != nil {
		observability.RecordQuery("unary", "retrieval_error", time.Since(start))
		return nil, err
	}

	raw, err := o.gen.Complete(ctx, o.buildMessages(query, r))
	if err != nil {
		observability.RecordQuery("unary", "generation_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", chat.ErrGeneration, err)
	}
	response := stripEmphasis(raw)

	sources := deriveSources(r.matches)
	if _, err := o.log.Append(ctx, sessionID, chat.Message{
		ID:      uuid.New().String(),
		Role:    chat.RoleUser,
		Content: query,
	}); err != nil {
		slog.Error("Failed to persist user message", "error", err, "session_id", sessionID)
	}
	if _, err := o.log.Append(ctx, sessionID, chat.Message{
		ID:      uuid.New().String(),
		Role:    chat.RoleAssistant,
		Content: response,
		Sources: sources,
	}); err != nil {
		slog.Error("Failed to persist assistant message", "error", err, "session_id", sessionID)
	}

	observability.RecordQuery("unary", "ok", time.Since(start))
	slog.Info("Query processed", "session_id", sessionID, "matches", len(r.matches))

	return &Result{
		Response:         response,
		Sources:          sources,
		RelevantArticles: len(r.matches),
	}, nil
}

// QueryStream runs the streaming pipeline and returns its event
// sequence. The channel is closed after a terminal event (complete or
// error); callers must drain it.
//
// The user message is persisted before generation starts, so history
// read by concurrent queries already reflects it. The assistant message
// is persisted only when the stream finishes cleanly: a generation
// failure partway leaves the transcript with the question but no
// half-answer.
func (o *Orchestrator) QueryStream(ctx context.Context, sessionID, query string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		start := time.Now()

		fail := func(status string, err error) {
			slog.Error("Streaming query failed", "error", err, "session_id", sessionID)
			observability.RecordQuery("stream", status, time.Since(start))
			events <- Event{Type: EventError, Message: userFacingError, Err: err}
		}

		r, err := o.retrieve(ctx, sessionID, query)
		if err != nil {
			fail("retrieval_error", err)
			return
		}

		if _, err := o.log.Append(ctx, sessionID, chat.Message{
			ID:      uuid.New().String(),
			Role:    chat.RoleUser,
			Content: query,
		}); err != nil {
			fail("persistence_error", err)
			return
		}

		stream, err := o.gen.Stream(ctx, o.buildMessages(query, r))
		if err != nil {
			fail("generation_error", fmt.Errorf("%w: %v", chat.ErrGeneration, err))
			return
		}
		defer stream.Close()

		var accumulated string
		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				fail("stream_error", fmt.Errorf("%w: %v", chat.ErrGeneration, err))
				return
			}
			chunk = stripEmphasis(chunk)
			accumulated += chunk
			observability.RecordStreamChunk()
			events <- Event{Type: EventChunk, Content: chunk}
		}

		sources := deriveSources(r.matches)
		if _, err := o.log.Append(ctx, sessionID, chat.Message{
			ID:      uuid.New().String(),
			Role:    chat.RoleAssistant,
			Content: accumulated,
			Sources: sources,
		}); err != nil {
			slog.Error("Failed to persist assistant message", "error", err, "session_id", sessionID)
		}

		observability.RecordQuery("stream", "ok", time.Since(start))
		events <- Event{Type: EventComplete, Sources: sources, RelevantArticles: len(r.matches)}
	}()
	return events
}
