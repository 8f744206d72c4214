package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/apperr"
	"github.com/documind/documind/internal/pipeline"
)

// QueryHandler exposes the question answering endpoint.
type QueryHandler struct {
	orchestrator *pipeline.Orchestrator
	logger       *logrus.Logger
}

func NewQueryHandler(orchestrator *pipeline.Orchestrator, logger *logrus.Logger) *QueryHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &QueryHandler{orchestrator: orchestrator, logger: logger}
}

// Query answers a question from the indexed documents.
// POST /query
func (h *QueryHandler) Query(c *gin.Context) {
	var req pipeline.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.orchestrator.Query(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("query", req.Query).Warn("Query failed")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps the error taxonomy onto HTTP status codes. Unknown
// errors are reported as internal without leaking details.
func writeError(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsUpstream(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
