package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/chunking"
	"github.com/documind/documind/internal/vectorindex"
)

// Task statuses, in processing order. A task ends in either completed or
// failed; both are terminal.
const (
	StatusPending    = "pending"
	StatusExtracting = "extracting"
	StatusChunking   = "chunking"
	StatusEmbedding  = "embedding"
	StatusIndexing   = "indexing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TaskStatus is the progress record polled by clients.
type TaskStatus struct {
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	DocumentID string  `json:"document_id,omitempty"`
	NumChunks  int     `json:"num_chunks,omitempty"`
	NumPages   int     `json:"num_pages,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// DocumentMeta is the durable record of an indexed document.
type DocumentMeta struct {
	Filename  string `json:"filename"`
	NumChunks int    `json:"num_chunks"`
	NumPages  int    `json:"num_pages"`
}

// Result summarizes one completed ingestion.
type Result struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	NumChunks  int    `json:"num_chunks"`
	NumPages   int    `json:"num_pages"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Embedder is the subset of the embedding client ingestion needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer is the subset of the vector index client ingestion needs.
type Indexer interface {
	InsertBatch(ctx context.Context, vectors []vectorindex.Vector) (int, error)
}

// Processor runs one document through extraction, chunking, embedding
// and indexing, publishing progress to the cache along the way.
type Processor struct {
	chunker  *chunking.SentenceAwareChunker
	embedder Embedder
	indexer  Indexer
	cache    *cache.Service
	logger   *logrus.Logger
}

func NewProcessor(chunker *chunking.SentenceAwareChunker, embedder Embedder, indexer Indexer, cacheSvc *cache.Service, logger *logrus.Logger) *Processor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Processor{
		chunker:  chunker,
		embedder: embedder,
		indexer:  indexer,
		cache:    cacheSvc,
		logger:   logger,
	}
}

// Process ingests one uploaded file under the given ids. Failures mark
// the task failed and are returned to the caller; the task status is the
// record clients observe.
func (p *Processor) Process(ctx context.Context, content []byte, filename, documentID, taskID string) (*Result, error) {
	result, err := p.run(ctx, content, filename, documentID, taskID)
	if err != nil {
		p.setStatus(ctx, taskID, TaskStatus{Status: StatusFailed, Error: err.Error()})
		p.logger.WithError(err).WithFields(logrus.Fields{
			"task_id":  taskID,
			"filename": filename,
		}).Error("Document processing failed")
		return &Result{
			DocumentID: documentID,
			Filename:   filename,
			Status:     StatusFailed,
			Error:      err.Error(),
		}, err
	}
	return result, nil
}

func (p *Processor) run(ctx context.Context, content []byte, filename, documentID, taskID string) (*Result, error) {
	p.setStatus(ctx, taskID, TaskStatus{Status: StatusExtracting, Progress: 0.1, DocumentID: documentID})

	extractor, err := ExtractorFor(filename)
	if err != nil {
		return nil, err
	}
	extraction, err := extractor.Extract(content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return nil, apperr.Processing("no text content found in document")
	}

	p.setStatus(ctx, taskID, TaskStatus{Status: StatusChunking, Progress: 0.3, DocumentID: documentID})

	chunks := p.chunker.Chunk(extraction.Text, documentID)
	if len(chunks) == 0 {
		return nil, apperr.Processing("no chunks generated from document")
	}

	p.setStatus(ctx, taskID, TaskStatus{Status: StatusEmbedding, Progress: 0.5, DocumentID: documentID, NumChunks: len(chunks)})

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	p.setStatus(ctx, taskID, TaskStatus{Status: StatusIndexing, Progress: 0.8, DocumentID: documentID, NumChunks: len(chunks)})

	vectors := make([]vectorindex.Vector, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = vectorindex.Vector{
			ID:        documentID + "_" + strconv.Itoa(chunk.Index),
			Embedding: embeddings[i],
			Metadata: vectorindex.Metadata{
				DocumentID: documentID,
				ChunkIndex: chunk.Index,
				Text:       chunk.Text,
				PageNumber: chunk.PageNumber,
			},
		}
	}
	if _, err := p.indexer.InsertBatch(ctx, vectors); err != nil {
		return nil, err
	}

	p.setStatus(ctx, taskID, TaskStatus{
		Status:     StatusCompleted,
		Progress:   1.0,
		DocumentID: documentID,
		NumChunks:  len(chunks),
		NumPages:   extraction.NumPages,
	})

	if p.cache != nil {
		meta := DocumentMeta{Filename: filename, NumChunks: len(chunks), NumPages: extraction.NumPages}
		if err := p.cache.SetDocumentMeta(ctx, documentID, meta); err != nil {
			p.logger.WithError(err).Warn("Failed to store document metadata")
		}
	}

	return &Result{
		DocumentID: documentID,
		Filename:   filename,
		NumChunks:  len(chunks),
		NumPages:   extraction.NumPages,
		Status:     StatusCompleted,
	}, nil
}

func (p *Processor) setStatus(ctx context.Context, taskID string, status TaskStatus) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetTaskStatus(ctx, taskID, status); err != nil {
		p.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to update task status")
	}
}
