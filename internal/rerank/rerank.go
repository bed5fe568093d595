// Package rerank provides a cross-encoder reranking client for two-stage
// retrieval. It talks to any Cohere-compatible /v1/rerank HTTP endpoint,
// such as a local Text Embeddings Inference server hosting bge-reranker.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/aerostream/aeros/internal/rag"
)

// Client implements rag.Reranker over HTTP. It is safe for concurrent use.
type Client struct {
	// endpoint is the reranker base URL (e.g. "http://localhost:8080").
	endpoint string
	// model is the reranker model name sent with each request. Optional for
	// single-model servers.
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// Config holds the settings for constructing a rerank Client.
type Config struct {
	// Endpoint is the reranker base URL (e.g. "http://localhost:8080").
	Endpoint string
	// Model is the reranker model name (e.g. "BAAI/bge-reranker-base").
	Model string
}

// NewClient constructs a rerank Client from the given config.
func NewClient(cfg *Config) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// rerankRequest is the JSON body sent to the /v1/rerank endpoint.
type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// rerankResponse is the JSON body returned from the /v1/rerank endpoint.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Rerank scores each (query, document) pair with the cross-encoder and
// returns the documents sorted by descending relevance, truncated to topK.
func (c *Client) Rerank(ctx context.Context, query string, docs []rag.Document, topK int) ([]rag.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	body := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: texts,
		TopN:      topK,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	url := c.endpoint + "/v1/rerank"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("rerank: %s", msg)
	}

	// The server returns (index, score) pairs referencing the request order.
	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].RelevanceScore > result.Results[j].RelevanceScore
	})

	out := make([]rag.Document, 0, topK)
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("rerank: index %d out of range [0, %d)", r.Index, len(docs))
		}
		d := docs[r.Index]
		d.Score = float32(r.RelevanceScore)
		out = append(out, d)
		if len(out) == topK {
			break
		}
	}

	return out, nil
}

var _ rag.Reranker = (*Client)(nil)
