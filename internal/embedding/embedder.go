// Package embedding abstracts the external text-embedding capability
// behind a narrow interface, with per-text result caching and bounded
// dispatch.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/concurrency"
	"github.com/documind/documind/internal/config"
)

const upstreamName = "embedding service"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	// Dimension returns the embedding dimensionality.
	Dimension() int
}

// ServiceEmbedder calls an external embedding inference service over
// HTTP. Results are cached by text hash; the actual inference call is
// dispatched through the shared bounded semaphore so embedding load
// cannot starve request handling.
type ServiceEmbedder struct {
	baseURL    string
	model      string
	apiKey     string
	dimension  int
	httpClient *http.Client
	cacheSvc   *cache.Service
	sem        *concurrency.Semaphore
	logger     *logrus.Logger
}

// NewServiceEmbedder creates the embedder. cacheSvc may be nil to
// disable result caching; sem may be nil to disable dispatch bounding.
func NewServiceEmbedder(cfg config.EmbeddingConfig, cacheSvc *cache.Service, sem *concurrency.Semaphore, logger *logrus.Logger) *ServiceEmbedder {
	if logger == nil {
		logger = logrus.New()
	}
	return &ServiceEmbedder{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cacheSvc: cacheSvc,
		sem:      sem,
		logger:   logger,
	}
}

func (e *ServiceEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns embeddings for texts in order, reusing cached vectors
// and batching only the misses into one inference call.
func (e *ServiceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if cached := e.cachedEmbedding(ctx, text); cached != nil {
			result[i] = cached
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	embeddings, err := e.embedRemote(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(missTexts) {
		return nil, apperr.Upstream(upstreamName,
			fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(embeddings)))
	}

	for j, embedding := range embeddings {
		result[missIdx[j]] = embedding
		e.storeEmbedding(ctx, missTexts[j], embedding)
	}
	return result, nil
}

func (e *ServiceEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, apperr.Upstream(upstreamName, fmt.Errorf("no embedding returned for query"))
	}
	return embeddings[0], nil
}

func (e *ServiceEmbedder) cachedEmbedding(ctx context.Context, text string) []float32 {
	if e.cacheSvc == nil {
		return nil
	}
	embedding, err := e.cacheSvc.GetEmbedding(ctx, cache.HashText(text))
	if err != nil {
		return nil
	}
	return embedding
}

func (e *ServiceEmbedder) storeEmbedding(ctx context.Context, text string, embedding []float32) {
	if e.cacheSvc == nil {
		return
	}
	if err := e.cacheSvc.SetEmbedding(ctx, cache.HashText(text), embedding); err != nil {
		e.logger.WithError(err).Debug("embedding not cached")
	}
}

func (e *ServiceEmbedder) embedRemote(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	call := func() error {
		payload := struct {
			Model  string   `json:"model"`
			Inputs []string `json:"inputs"`
		}{Model: e.model, Inputs: texts}

		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return apperr.Upstream(upstreamName, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return apperr.Upstream(upstreamName,
				fmt.Errorf("returned status %d: %s", resp.StatusCode, string(respBody)))
		}

		var decoded struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return apperr.Upstream(upstreamName, fmt.Errorf("failed to decode response: %w", err))
		}
		embeddings = decoded.Embeddings
		return nil
	}

	var err error
	if e.sem != nil {
		err = e.sem.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}
