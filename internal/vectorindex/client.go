// Package vectorindex provides the HTTP client for the external vector
// similarity service. The service owns the index; this client only
// inserts vectors and runs nearest-neighbor queries.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/config"
)

const upstreamName = "vector index"

// Metadata carries the chunk payload stored alongside each vector.
type Metadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
}

// Vector is an embedding plus its metadata, keyed by id.
type Vector struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// SearchResult is one ranked candidate from a similarity query.
type SearchResult struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
}

// Stats reports index-level statistics.
type Stats struct {
	VectorCount int    `json:"vector_count"`
	IndexType   string `json:"index_type,omitempty"`
}

// Client talks to the vector service over HTTP.
type Client struct {
	baseURL    string
	algorithm  string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.VectorConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		algorithm: cfg.Algorithm,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Insert stores a single vector.
func (c *Client) Insert(ctx context.Context, v Vector) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/insert", v, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return apperr.Upstream(upstreamName, fmt.Errorf("insert rejected for id %s", v.ID))
	}
	return nil
}

// InsertBatch stores vectors in one call and returns how many the
// service accepted.
func (c *Client) InsertBatch(ctx context.Context, vectors []Vector) (int, error) {
	payload := struct {
		Vectors []Vector `json:"vectors"`
	}{Vectors: vectors}

	var resp struct {
		Inserted int `json:"inserted"`
	}
	if err := c.post(ctx, "/insert/batch", payload, &resp); err != nil {
		return 0, err
	}
	return resp.Inserted, nil
}

// Search runs a nearest-neighbor query and returns ranked candidates
// with their stored metadata flattened.
func (c *Client) Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error) {
	payload := struct {
		Embedding []float32 `json:"embedding"`
		TopK      int       `json:"top_k"`
		Algorithm string    `json:"algorithm"`
	}{Embedding: embedding, TopK: topK, Algorithm: c.algorithm}

	var resp struct {
		Results []struct {
			ID       string   `json:"id"`
			Score    float64  `json:"score"`
			Metadata Metadata `json:"metadata"`
		} `json:"results"`
	}
	if err := c.post(ctx, "/search", payload, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, SearchResult{
			ID:         r.ID,
			Score:      r.Score,
			DocumentID: r.Metadata.DocumentID,
			ChunkIndex: r.Metadata.ChunkIndex,
			Text:       r.Metadata.Text,
			PageNumber: r.Metadata.PageNumber,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"top_k":   topK,
		"results": len(results),
	}).Debug("vector search completed")

	return results, nil
}

// Health returns the service's health payload, or a status of
// "unavailable" when it cannot be reached. Health never fails hard; it
// feeds the aggregate health surface.
func (c *Client) Health(ctx context.Context) map[string]interface{} {
	var health map[string]interface{}
	if err := c.get(ctx, "/health", &health); err != nil {
		return map[string]interface{}{"status": "unavailable"}
	}
	return health
}

// GetStats fetches index statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream(upstreamName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apperr.Upstream(upstreamName,
			fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Upstream(upstreamName, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
