package pipeline

// QueryRequest is the inbound question plus retrieval options.
type QueryRequest struct {
	Query       string   `json:"query" binding:"required"`
	TopK        int      `json:"top_k"`
	DocumentIDs []string `json:"document_ids"`
}

// Source is a cited passage backing the answer. ChunkText is truncated
// for transport; the full text lives in the vector index payload.
type Source struct {
	DocumentID     string  `json:"document_id"`
	ChunkText      string  `json:"chunk_text"`
	ChunkIndex     int     `json:"chunk_index"`
	PageNumber     int     `json:"page_number,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// LatencyBreakdown reports per-stage wall time in milliseconds.
type LatencyBreakdown struct {
	EmbeddingMS  float64 `json:"embedding_ms"`
	SearchMS     float64 `json:"search_ms"`
	RerankMS     float64 `json:"rerank_ms"`
	ContextMS    float64 `json:"context_ms"`
	GenerationMS float64 `json:"generation_ms"`
	TotalMS      float64 `json:"total_ms"`
}

// QueryResponse is the full pipeline result.
type QueryResponse struct {
	Answer   string           `json:"answer"`
	Sources  []Source         `json:"sources"`
	Latency  LatencyBreakdown `json:"latency"`
	Cached   bool             `json:"cached"`
	Provider string           `json:"provider,omitempty"`
}
