package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires all API routes onto a gin engine. gatherer may be nil to
// use the default Prometheus registry.
func Router(query *QueryHandler, documents *DocumentHandler, health *HealthHandler, gatherer prometheus.Gatherer) *gin.Engine {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", health.Root)
	router.GET("/health", health.Health)
	router.GET("/metrics", health.Metrics)
	router.GET("/metrics/prometheus", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.POST("/query", query.Query)

	docs := router.Group("/documents")
	{
		docs.POST("/upload", documents.Upload)
		docs.GET("/status/:task_id", documents.TaskStatus)
		docs.GET("/:document_id", documents.DocumentInfo)
	}

	return router
}
