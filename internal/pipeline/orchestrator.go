package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/assembler"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/config"
	"github.com/documind/documind/internal/llm"
	"github.com/documind/documind/internal/metrics"
	"github.com/documind/documind/internal/rerank"
	"github.com/documind/documind/internal/vectorindex"
)

const (
	// sourceTextLimit truncates cited chunk text in responses.
	sourceTextLimit = 500
	// fallbackExcerptLimit truncates passages in extractive answers.
	fallbackExcerptLimit = 300
)

// QueryEmbedder turns a query into an embedding.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher runs similarity search against the vector index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]vectorindex.SearchResult, error)
}

// Ranker reorders retrieval candidates by relevance.
type Ranker interface {
	Rerank(ctx context.Context, query string, candidates []rerank.Candidate, topK int) ([]rerank.RankedDocument, error)
}

// ContextBuilder packs ranked passages into a prompt.
type ContextBuilder interface {
	Assemble(query string, docs []rerank.RankedDocument, systemPrompt string) assembler.AssembledContext
}

// Generator produces the final answer. A nil result with nil error means
// no provider is available and the caller should answer extractively.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*llm.GenerationResult, error)
}

// Orchestrator runs the retrieval and generation pipeline end to end.
type Orchestrator struct {
	embedder  QueryEmbedder
	searcher  Searcher
	ranker    Ranker
	builder   ContextBuilder
	generator Generator
	cache     *cache.Service
	collector *metrics.Collector
	cfg       config.ContextConfig
	logger    *logrus.Logger
}

func NewOrchestrator(
	embedder QueryEmbedder,
	searcher Searcher,
	ranker Ranker,
	builder ContextBuilder,
	generator Generator,
	cacheSvc *cache.Service,
	collector *metrics.Collector,
	cfg config.ContextConfig,
	logger *logrus.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		embedder:  embedder,
		searcher:  searcher,
		ranker:    ranker,
		builder:   builder,
		generator: generator,
		cache:     cacheSvc,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// Query answers a question from the indexed corpus.
//
// A cache hit for an identical query fingerprint short-circuits the whole
// pipeline. Otherwise the stages run in order: embed the query, fetch a
// wide candidate set from the index, filter to the requested documents,
// rerank, pack the context, generate. Results are cached before return;
// cache write failures are logged and do not fail the query.
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = o.cfg.TopKFinal
	}
	fingerprint := cache.Fingerprint(req.Query, topK, req.DocumentIDs)

	if o.cache != nil {
		var cached QueryResponse
		if err := o.cache.GetQueryResult(ctx, fingerprint, &cached); err == nil {
			if o.collector != nil {
				o.collector.RecordCacheHit(ctx)
			}
			cached.Cached = true
			return &cached, nil
		}
	}
	if o.collector != nil {
		o.collector.RecordCacheMiss(ctx)
	}

	timer := metrics.NewTimer()

	var embedding []float32
	err := timer.Stage("embedding", func() error {
		var err error
		embedding, err = o.embedder.EmbedQuery(ctx, req.Query)
		return err
	})
	if err != nil {
		return nil, err
	}

	var results []vectorindex.SearchResult
	err = timer.Stage("search", func() error {
		var err error
		results, err = o.searcher.Search(ctx, embedding, o.cfg.TopKRetrieval)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(req.DocumentIDs) > 0 {
		results = filterByDocument(results, req.DocumentIDs)
	}
	if len(results) == 0 {
		return nil, apperrNoDocuments()
	}

	var ranked []rerank.RankedDocument
	err = timer.Stage("rerank", func() error {
		var err error
		ranked, err = o.ranker.Rerank(ctx, req.Query, toCandidates(results), topK)
		return err
	})
	if err != nil {
		return nil, err
	}

	var assembled assembler.AssembledContext
	_ = timer.Stage("context", func() error {
		assembled = o.builder.Assemble(req.Query, ranked, "")
		return nil
	})

	var answer, provider string
	err = timer.Stage("generation", func() error {
		result, err := o.generator.Generate(ctx, assembled.Prompt)
		if err != nil {
			return err
		}
		if result == nil {
			answer = extractiveAnswer(ranked)
			return nil
		}
		answer = result.Text
		provider = result.Provider
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := &QueryResponse{
		Answer:   answer,
		Sources:  toSources(assembled.Chunks),
		Provider: provider,
		Latency: LatencyBreakdown{
			EmbeddingMS:  timer.StageMS("embedding"),
			SearchMS:     timer.StageMS("search"),
			RerankMS:     timer.StageMS("rerank"),
			ContextMS:    timer.StageMS("context"),
			GenerationMS: timer.StageMS("generation"),
			TotalMS:      timer.TotalMS(),
		},
	}

	if o.collector != nil {
		timer.RecordAll(ctx, o.collector)
	}
	if o.cache != nil {
		if err := o.cache.SetQueryResult(ctx, fingerprint, response); err != nil {
			o.logger.WithError(err).Warn("Failed to cache query result")
		}
	}
	return response, nil
}

func filterByDocument(results []vectorindex.SearchResult, documentIDs []string) []vectorindex.SearchResult {
	allowed := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = struct{}{}
	}
	filtered := results[:0]
	for _, r := range results {
		if _, ok := allowed[r.DocumentID]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func toCandidates(results []vectorindex.SearchResult) []rerank.Candidate {
	candidates := make([]rerank.Candidate, len(results))
	for i, r := range results {
		candidates[i] = rerank.Candidate{
			ID:    r.ID,
			Text:  r.Text,
			Score: r.Score,
			Metadata: map[string]interface{}{
				"document_id": r.DocumentID,
				"chunk_index": r.ChunkIndex,
				"page_number": r.PageNumber,
			},
		}
	}
	return candidates
}

func toSources(chunks []assembler.ContextChunk) []Source {
	sources := make([]Source, len(chunks))
	for i, chunk := range chunks {
		text := chunk.Text
		if len(text) > sourceTextLimit {
			text = text[:sourceTextLimit]
		}
		sources[i] = Source{
			DocumentID:     chunk.DocumentID,
			ChunkText:      text,
			ChunkIndex:     chunk.ChunkIndex,
			PageNumber:     chunk.PageNumber,
			RelevanceScore: chunk.RelevanceScore,
		}
	}
	return sources
}
