package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/chunking"
	"github.com/documind/documind/internal/config"
	"github.com/documind/documind/internal/vectorindex"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeIndexer struct {
	vectors []vectorindex.Vector
	err     error
}

func (f *fakeIndexer) InsertBatch(_ context.Context, vectors []vectorindex.Vector) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.vectors = append(f.vectors, vectors...)
	return len(vectors), nil
}

func testCache(t *testing.T) *cache.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewRedisClientFromAddr(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewService(client, config.CacheConfig{
		TaskTTL:     time.Hour,
		DocumentTTL: 24 * time.Hour,
	}, nil)
}

func newProcessor(embedder *fakeEmbedder, indexer *fakeIndexer, cacheSvc *cache.Service) *Processor {
	chunker := chunking.NewSentenceAwareChunker(&chunking.Config{
		ChunkSize:    200,
		ChunkOverlap: 20,
		MinChunkSize: 50,
	})
	return NewProcessor(chunker, embedder, indexer, cacheSvc, nil)
}

const sampleText = "Refunds are issued within thirty days of purchase. A receipt is required for every refund. " +
	"Exchanges follow the same policy as refunds. Items damaged in shipping are replaced at no cost. " +
	"Contact the support team to start a claim. Claims are reviewed within two business days."

func TestProcess_TextDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	indexer := &fakeIndexer{}
	cacheSvc := testCache(t)
	p := newProcessor(embedder, indexer, cacheSvc)

	ctx := context.Background()
	result, err := p.Process(ctx, []byte(sampleText), "policy.txt", "doc-1", "task-1")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 1, result.NumPages)
	assert.Greater(t, result.NumChunks, 0)
	assert.Len(t, indexer.vectors, result.NumChunks)

	// Vector ids are documentID_chunkIndex.
	assert.Equal(t, "doc-1_0", indexer.vectors[0].ID)
	assert.Equal(t, "doc-1", indexer.vectors[0].Metadata.DocumentID)

	var status TaskStatus
	require.NoError(t, cacheSvc.GetTaskStatus(ctx, "task-1", &status))
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 1.0, status.Progress)
	assert.Equal(t, result.NumChunks, status.NumChunks)

	var meta DocumentMeta
	require.NoError(t, cacheSvc.GetDocumentMeta(ctx, "doc-1", &meta))
	assert.Equal(t, "policy.txt", meta.Filename)
	assert.Equal(t, result.NumChunks, meta.NumChunks)
}

func TestProcess_UnsupportedExtension(t *testing.T) {
	cacheSvc := testCache(t)
	p := newProcessor(&fakeEmbedder{}, &fakeIndexer{}, cacheSvc)

	ctx := context.Background()
	result, err := p.Process(ctx, []byte("data"), "report.docx", "doc-1", "task-1")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, StatusFailed, result.Status)

	var status TaskStatus
	require.NoError(t, cacheSvc.GetTaskStatus(ctx, "task-1", &status))
	assert.Equal(t, StatusFailed, status.Status)
	assert.NotEmpty(t, status.Error)
}

func TestProcess_EmptyDocument(t *testing.T) {
	p := newProcessor(&fakeEmbedder{}, &fakeIndexer{}, testCache(t))

	_, err := p.Process(context.Background(), []byte("   \n\n  "), "empty.txt", "doc-1", "task-1")
	require.Error(t, err)
	assert.True(t, apperr.IsProcessing(err))
}

func TestProcess_EmbedFailureMarksTaskFailed(t *testing.T) {
	cacheSvc := testCache(t)
	embedder := &fakeEmbedder{err: apperr.Upstream("embedding service", assert.AnError)}
	p := newProcessor(embedder, &fakeIndexer{}, cacheSvc)

	ctx := context.Background()
	_, err := p.Process(ctx, []byte(sampleText), "policy.txt", "doc-1", "task-1")
	require.Error(t, err)

	var status TaskStatus
	require.NoError(t, cacheSvc.GetTaskStatus(ctx, "task-1", &status))
	assert.Equal(t, StatusFailed, status.Status)
}

func TestExtractorFor(t *testing.T) {
	_, err := ExtractorFor("notes.TXT")
	assert.NoError(t, err)
	_, err = ExtractorFor("paper.pdf")
	assert.NoError(t, err)
	_, err = ExtractorFor("image.png")
	assert.True(t, apperr.IsValidation(err))
}

func TestTextExtractor(t *testing.T) {
	extraction, err := TextExtractor{}.Extract([]byte("plain contents"))
	require.NoError(t, err)
	assert.Equal(t, "plain contents", extraction.Text)
	assert.Equal(t, 1, extraction.NumPages)
}

func TestRunner_SubmitAndPoll(t *testing.T) {
	cacheSvc := testCache(t)
	p := newProcessor(&fakeEmbedder{}, &fakeIndexer{}, cacheSvc)
	runner := NewRunner(p, cacheSvc, nil)

	ctx := context.Background()
	taskID, err := runner.Submit(ctx, []byte(sampleText), "policy.txt")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	// Pending status is visible immediately after submission.
	status, err := runner.Status(ctx, taskID)
	require.NoError(t, err)
	assert.NotEqual(t, "", status.Status)

	runner.Wait()

	status, err = runner.Status(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Zero(t, runner.InFlight())
}

func TestRunner_UnknownTask(t *testing.T) {
	cacheSvc := testCache(t)
	runner := NewRunner(newProcessor(&fakeEmbedder{}, &fakeIndexer{}, cacheSvc), cacheSvc, nil)

	_, err := runner.Status(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRunner_FailedTaskReportsError(t *testing.T) {
	cacheSvc := testCache(t)
	embedder := &fakeEmbedder{err: assert.AnError}
	runner := NewRunner(newProcessor(embedder, &fakeIndexer{}, cacheSvc), cacheSvc, nil)

	taskID, err := runner.Submit(context.Background(), []byte(sampleText), "policy.txt")
	require.NoError(t, err)
	runner.Wait()

	status, err := runner.Status(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.True(t, strings.Contains(status.Error, assert.AnError.Error()))
}
