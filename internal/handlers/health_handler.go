package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/metrics"
	"github.com/documind/documind/internal/vectorindex"
)

const apiVersion = "1.0.0"

// HealthHandler exposes the health and metrics surface.
type HealthHandler struct {
	vector    *vectorindex.Client
	cache     *cache.Service
	collector *metrics.Collector
	logger    *logrus.Logger
}

func NewHealthHandler(vector *vectorindex.Client, cacheSvc *cache.Service, collector *metrics.Collector, logger *logrus.Logger) *HealthHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthHandler{
		vector:    vector,
		cache:     cacheSvc,
		collector: collector,
		logger:    logger,
	}
}

// Health aggregates the API's own status with its dependencies. Any
// degraded dependency degrades the whole report but never fails it.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	services := gin.H{"api": "ok"}
	overall := "ok"

	vectorStatus := h.vectorStatus(ctx)
	services["vector_service"] = vectorStatus
	if vectorStatus != "ok" {
		overall = "degraded"
	}

	redisStatus := "ok"
	if h.cache == nil {
		redisStatus = "unavailable"
	} else if err := h.cache.Ping(ctx); err != nil {
		redisStatus = "unavailable"
	}
	services["redis"] = redisStatus
	if redisStatus != "ok" {
		overall = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   overall,
		"version":  apiVersion,
		"services": services,
	})
}

func (h *HealthHandler) vectorStatus(ctx context.Context) string {
	if h.vector == nil {
		return "unavailable"
	}
	health := h.vector.Health(ctx)
	if status, ok := health["status"].(string); ok {
		return status
	}
	return "unknown"
}

// Metrics reports stage latency percentiles, the cache hit ratio and the
// index size.
// GET /metrics
func (h *HealthHandler) Metrics(c *gin.Context) {
	stages := gin.H{}
	cacheHitRatio := 0.0
	if h.collector != nil {
		for stage, m := range h.collector.AllMetrics() {
			stages[stage] = gin.H{
				"count":   m.Count,
				"p50_ms":  round2(m.P50),
				"p95_ms":  round2(m.P95),
				"p99_ms":  round2(m.P99),
				"mean_ms": round2(m.Mean),
			}
		}
		cacheHitRatio = h.collector.CacheHitRatio()
	}

	vectorCount := 0
	if h.vector != nil {
		if stats, err := h.vector.GetStats(c.Request.Context()); err == nil {
			vectorCount = stats.VectorCount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stages":          stages,
		"cache_hit_ratio": math.Round(cacheHitRatio*1000) / 1000,
		"vector_count":    vectorCount,
	})
}

// Root describes the API.
// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "DocuMind API",
		"version":     apiVersion,
		"description": "AI document intelligence service",
		"health":      "/health",
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
