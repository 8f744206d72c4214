package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/assembler"
	"github.com/documind/documind/internal/cache"
	"github.com/documind/documind/internal/chunking"
	"github.com/documind/documind/internal/concurrency"
	"github.com/documind/documind/internal/config"
	"github.com/documind/documind/internal/embedding"
	"github.com/documind/documind/internal/handlers"
	"github.com/documind/documind/internal/ingest"
	"github.com/documind/documind/internal/llm"
	"github.com/documind/documind/internal/metrics"
	"github.com/documind/documind/internal/pipeline"
	"github.com/documind/documind/internal/rerank"
	"github.com/documind/documind/internal/vectorindex"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	gin.SetMode(cfg.Server.Mode)

	redisClient := cache.NewRedisClient(cfg.Redis)
	cacheSvc := cache.NewService(redisClient, cfg.Cache, logger)
	if err := cacheSvc.Ping(context.Background()); err != nil {
		logger.WithError(err).Warn("Redis unreachable at startup, caching degraded")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(cacheSvc, registry, logger)

	inferenceSem := concurrency.NewSemaphore(cfg.Inference.MaxConcurrent)

	vectorClient := vectorindex.NewClient(cfg.Vector, logger)
	embedder := embedding.NewServiceEmbedder(cfg.Embedding, cacheSvc, inferenceSem, logger)
	scorer := rerank.NewHTTPScorer(cfg.Rerank, inferenceSem, logger)
	reranker := rerank.NewReranker(scorer, logger)
	builder := assembler.New(cfg.Context.MaxContextTokens, assembler.NewTokenCounter(cfg.Context.Encoding), logger)
	gateway := llm.NewGateway(cfg.LLM, logger)

	orchestrator := pipeline.NewOrchestrator(
		embedder, vectorClient, reranker, builder, gateway,
		cacheSvc, collector, cfg.Context, logger,
	)

	chunker := chunking.NewSentenceAwareChunker(&chunking.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MinChunkSize: cfg.Chunking.MinChunkSize,
	})
	processor := ingest.NewProcessor(chunker, embedder, vectorClient, cacheSvc, logger)
	runner := ingest.NewRunner(processor, cacheSvc, logger)

	queryHandler := handlers.NewQueryHandler(orchestrator, logger)
	documentHandler := handlers.NewDocumentHandler(runner, cacheSvc, cfg.Upload, logger)
	healthHandler := handlers.NewHealthHandler(vectorClient, cacheSvc, collector, logger)

	router := handlers.Router(queryHandler, documentHandler, healthHandler, registry)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	// Let in-flight ingestion finish before closing shared clients.
	runner.Wait()
	if err := redisClient.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close redis client")
	}
	logger.Info("Stopped")
}
