package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// PineconeConfig configures the Pinecone index client.
type PineconeConfig struct {
	APIKey string
	// Host is the index endpoint, e.g.
	// https://chatbot-rag-abc123.svc.us-east-1-aws.pinecone.io
	Host string
}

// PineconeIndex implements VectorIndex against the Pinecone data-plane
// REST API.
type PineconeIndex struct {
	apiKey string
	host   string
	client *http.Client
}

// NewPineconeIndex creates a Pinecone index client.
func NewPineconeIndex(cfg PineconeConfig) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone api key is required")
	}
	if cfg.Host == "" {
		return nil, errors.New("pinecone index host is required")
	}
	return &PineconeIndex{
		apiKey: cfg.APIKey,
		host:   cfg.Host,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query performs a similarity search. Matches come back ordered by
// descending score, as Pinecone returns them.
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	req := pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: includeMetadata,
		IncludeValues:   false,
	}

	var resp pineconeQueryResponse
	if err := p.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{Score: m.Score, Metadata: stringifyMetadata(m.Metadata)})
	}
	return matches, nil
}

type pineconeUpsertRequest struct {
	Vectors []Vector `json:"vectors"`
}

// Upsert inserts or updates vectors in batches of 100.
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []Vector) error {
	const batchSize = 100
	for start := 0; start < len(vectors); start += batchSize {
		end := start + batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		req := pineconeUpsertRequest{Vectors: vectors[start:end]}
		if err := p.post(ctx, "/vectors/upsert", req, nil); err != nil {
			return err
		}
	}
	return nil
}

type pineconeStatsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

// Count returns the total number of vectors in the index.
func (p *PineconeIndex) Count(ctx context.Context) (int, error) {
	var resp pineconeStatsResponse
	if err := p.post(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalVectorCount, nil
}

func (p *PineconeIndex) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pinecone %s: status %d: %s", path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stringifyMetadata flattens Pinecone's loosely typed metadata into the
// string map the pipeline consumes.
func stringifyMetadata(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			data, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}
