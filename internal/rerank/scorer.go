package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/concurrency"
	"github.com/documind/documind/internal/config"
)

// Scorer produces a relevance score for each candidate text against a query.
// Scores are returned in input order, one per text.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// HTTPScorer calls a cross-encoder scoring endpoint. Candidates are sent
// as (query, text) pairs in batches of BatchSize.
type HTTPScorer struct {
	endpoint   string
	model      string
	apiKey     string
	batchSize  int
	httpClient *http.Client
	sem        *concurrency.Semaphore
	logger     *logrus.Logger
}

func NewHTTPScorer(cfg config.RerankConfig, sem *concurrency.Semaphore, logger *logrus.Logger) *HTTPScorer {
	if logger == nil {
		logger = logrus.New()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScorer{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		sem:        sem,
		logger:     logger,
	}
}

type scoreRequest struct {
	Model string      `json:"model,omitempty"`
	Pairs [][2]string `json:"pairs"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

func (s *HTTPScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	scores := make([]float64, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.scoreBatch(ctx, query, texts[start:end])
		if err != nil {
			return nil, err
		}
		scores = append(scores, batch...)
	}

	if len(scores) != len(texts) {
		return nil, apperr.Upstream("reranker", fmt.Errorf("scored %d of %d candidates", len(scores), len(texts)))
	}
	return scores, nil
}

func (s *HTTPScorer) scoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	pairs := make([][2]string, len(texts))
	for i, text := range texts {
		pairs[i] = [2]string{query, text}
	}

	var result scoreResponse
	call := func() error {
		body, err := json.Marshal(scoreRequest{Model: s.model, Pairs: pairs})
		if err != nil {
			return apperr.Processing("marshal score request: %v", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return apperr.Upstream("reranker", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return apperr.Upstream("reranker", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperr.Upstream("reranker", fmt.Errorf("status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return apperr.Upstream("reranker", fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	var err error
	if s.sem != nil {
		err = s.sem.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}

	if len(result.Scores) != len(texts) {
		return nil, apperr.Upstream("reranker", fmt.Errorf("expected %d scores, got %d", len(texts), len(result.Scores)))
	}
	return result.Scores, nil
}
