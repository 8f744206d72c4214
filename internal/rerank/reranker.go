package rerank

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Candidate is a retrieved passage entering the rerank stage.
type Candidate struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]interface{}
}

// RankedDocument is a candidate after cross-encoder scoring.
// OriginalRank preserves the candidate's position in the retrieval
// ordering and breaks score ties deterministically.
type RankedDocument struct {
	ID           string                 `json:"id"`
	Text         string                 `json:"text"`
	Score        float64                `json:"score"`
	OriginalRank int                    `json:"original_rank"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Reranker reorders retrieval candidates by cross-encoder relevance.
type Reranker struct {
	scorer Scorer
	logger *logrus.Logger
}

func NewReranker(scorer Scorer, logger *logrus.Logger) *Reranker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reranker{scorer: scorer, logger: logger}
}

// Rerank scores candidates against the query and returns the top topK
// documents ordered by descending score. Equal scores keep their original
// retrieval order. topK <= 0 keeps all candidates.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]RankedDocument, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	start := time.Now()
	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedDocument, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedDocument{
			ID:           c.ID,
			Text:         c.Text,
			Score:        scores[i],
			OriginalRank: i,
			Metadata:     c.Metadata,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	r.logger.WithFields(logrus.Fields{
		"candidates":  len(candidates),
		"returned":    len(ranked),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Reranked candidates")

	return ranked, nil
}

// RerankAll scores and reorders every candidate without truncation.
// Useful when the caller wants the full scored list for inspection.
func (r *Reranker) RerankAll(ctx context.Context, query string, candidates []Candidate) ([]RankedDocument, error) {
	return r.Rerank(ctx, query, candidates, 0)
}
