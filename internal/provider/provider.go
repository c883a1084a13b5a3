// Package provider defines the external collaborator contracts the query
// pipeline consumes: text embeddings, vector similarity search, and text
// generation. The core never implements these services, only their
// clients.
package provider

import (
	"context"
)

// Embedder turns text into vectors.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one vector search hit. Matches are not persisted; the
// metadata carries whatever the index stored alongside the vector.
type Match struct {
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Vector is one entry to upsert into the index.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// VectorIndex is the similarity search contract. Query results come back
// ordered by descending relevance as the provider returns them; the
// pipeline does not re-sort.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error)
	Upsert(ctx context.Context, vectors []Vector) error
	Count(ctx context.Context) (int, error)
}

// ChatMessage is one turn handed to the generation provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream is a finite, non-restartable sequence of generation chunks.
// Recv returns io.EOF when the stream completes normally.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Generator is the text generation contract, in unary and streaming form.
type Generator interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Stream(ctx context.Context, messages []ChatMessage) (Stream, error)
}
