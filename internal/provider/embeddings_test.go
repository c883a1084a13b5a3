package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	_, err := NewOpenAIEmbedder(EmbedderConfig{Model: "m"})
	assert.Error(t, err, "api key is required")

	_, err = NewOpenAIEmbedder(EmbedderConfig{APIKey: "k"})
	assert.Error(t, err, "model is required")
}

// embeddingResponse builds the wire form for one batch, assigning each
// input the vector [base+0, base+1] at its position.
func embeddingResponse(n int, base float32) string {
	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	items := make([]item, n)
	for i := range items {
		items[i] = item{Object: "embedding", Embedding: []float32{base + float32(i), base + float32(i) + 1}, Index: i}
	}
	data, _ := json.Marshal(map[string]any{"object": "list", "data": items, "model": "m"})
	return string(data)
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer jina-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jina-embeddings-v2-base-en", body["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, embeddingResponse(1, 0.5))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(EmbedderConfig{
		APIKey:  "jina-key",
		BaseURL: server.URL,
		Model:   "jina-embeddings-v2-base-en",
	})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.5}, vec)
}

func TestEmbed_EmptyText(t *testing.T) {
	e, err := NewOpenAIEmbedder(EmbedderConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "")
	assert.Error(t, err)
}

func TestEmbedBatch_SplitsIntoBatches(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.LessOrEqual(t, len(body.Input), 3)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, embeddingResponse(len(body.Input), 0))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(EmbedderConfig{
		APIKey:        "k",
		BaseURL:       server.URL,
		Model:         "m",
		BatchSize:     3,
		BatchInterval: time.Millisecond,
	})
	require.NoError(t, err)

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 7)
	assert.Equal(t, int32(3), requests.Load())
}

func TestEmbedBatch_OrderRestoredByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Out of order on the wire; the index field is authoritative.
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object": "list", "model": "m", "data": [
			{"object": "embedding", "embedding": [2], "index": 1},
			{"object": "embedding", "embedding": [1], "index": 0}
		]}`)
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(EmbedderConfig{
		APIKey: "k", BaseURL: server.URL, Model: "m", BatchInterval: time.Millisecond,
	})
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vectors)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, embeddingResponse(1, 0))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(EmbedderConfig{
		APIKey: "k", BaseURL: server.URL, Model: "m", BatchInterval: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "mismatch")
}

func TestEmbedBatch_Empty(t *testing.T) {
	e, err := NewOpenAIEmbedder(EmbedderConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}
