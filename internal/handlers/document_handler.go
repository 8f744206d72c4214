package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/config"
	"github.com/documind/documind/internal/ingest"
)

// DocumentHandler handles document upload and status endpoints.
type DocumentHandler struct {
	runner *ingest.Runner
	cache  *cache.Service
	cfg    config.UploadConfig
	logger *logrus.Logger
}

func NewDocumentHandler(runner *ingest.Runner, cacheSvc *cache.Service, cfg config.UploadConfig, logger *logrus.Logger) *DocumentHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &DocumentHandler{
		runner: runner,
		cache:  cacheSvc,
		cfg:    cfg,
		logger: logger,
	}
}

// Upload accepts a multipart document and queues it for processing.
// POST /documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !h.extensionAllowed(ext) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unsupported file type: %s, allowed: %s", ext, strings.Join(h.cfg.AllowedExtensions, ", ")),
		})
		return
	}

	maxBytes := int64(h.cfg.MaxFileSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large: %.1fMB, maximum: %dMB", float64(fileHeader.Size)/(1024*1024), h.cfg.MaxFileSizeMB),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	if int64(len(content)) > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, maximum: %dMB", h.cfg.MaxFileSizeMB),
		})
		return
	}

	taskID, err := h.runner.Submit(c.Request.Context(), content, fileHeader.Filename)
	if err != nil {
		h.logger.WithError(err).Error("Failed to submit document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue document"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"status":  "processing",
		"message": fmt.Sprintf("Document '%s' uploaded and processing started", fileHeader.Filename),
	})
}

// TaskStatus reports ingestion progress for a task.
// GET /documents/status/:task_id
func (h *DocumentHandler) TaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	status, err := h.runner.Status(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":     taskID,
		"status":      status.Status,
		"progress":    status.Progress,
		"document_id": status.DocumentID,
		"num_chunks":  status.NumChunks,
		"num_pages":   status.NumPages,
		"error":       status.Error,
	})
}

// DocumentInfo returns stored metadata for an indexed document.
// GET /documents/:document_id
func (h *DocumentHandler) DocumentInfo(c *gin.Context) {
	documentID := c.Param("document_id")

	var meta ingest.DocumentMeta
	if err := h.cache.GetDocumentMeta(c.Request.Context(), documentID, &meta); err != nil {
		if cache.IsMiss(err) {
			writeError(c, apperr.NotFound("document %s not found", documentID))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"filename":    meta.Filename,
		"num_chunks":  meta.NumChunks,
		"num_pages":   meta.NumPages,
	})
}

func (h *DocumentHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.cfg.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
