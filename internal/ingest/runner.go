package ingest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/cache"
)

// Runner executes document processing in the background. Task progress
// lives in the cache so status survives across API instances; the local
// registry only tracks in-flight goroutines for shutdown.
type Runner struct {
	processor *Processor
	cache     *cache.Service
	logger    *logrus.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

func NewRunner(processor *Processor, cacheSvc *cache.Service, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		processor: processor,
		cache:     cacheSvc,
		logger:    logger,
		pending:   map[string]struct{}{},
	}
}

// Submit queues a document for processing and returns the task id to
// poll. The initial pending status is written before return so a poll
// immediately after submission never sees an unknown task.
func (r *Runner) Submit(ctx context.Context, content []byte, filename string) (string, error) {
	taskID := uuid.New().String()
	documentID := uuid.New().String()

	if r.cache != nil {
		status := TaskStatus{Status: StatusPending, DocumentID: documentID}
		if err := r.cache.SetTaskStatus(ctx, taskID, status); err != nil {
			return "", err
		}
	}

	r.mu.Lock()
	r.pending[taskID] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.pending, taskID)
			r.mu.Unlock()
		}()

		// Detached from the request context: the upload response returns
		// before processing finishes.
		_, err := r.processor.Process(context.Background(), content, filename, documentID, taskID)
		if err != nil {
			r.logger.WithError(err).WithField("task_id", taskID).Warn("Background ingestion failed")
		}
	}()

	r.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"document_id": documentID,
		"filename":    filename,
	}).Info("Submitted document for processing")

	return taskID, nil
}

// Status returns the task's progress record, or a not found error for a
// task id the cache has never seen.
func (r *Runner) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	if r.cache == nil {
		return nil, apperr.NotFound("task %s not found", taskID)
	}
	var status TaskStatus
	if err := r.cache.GetTaskStatus(ctx, taskID, &status); err != nil {
		if cache.IsMiss(err) {
			return nil, apperr.NotFound("task %s not found", taskID)
		}
		return nil, err
	}
	return &status, nil
}

// InFlight reports the number of tasks still processing.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Wait blocks until all submitted tasks have finished. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
