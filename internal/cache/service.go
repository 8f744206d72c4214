package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/config"
)

const latencyWindowSize = 1000

// Service provides domain-keyed caching on top of the Redis client:
// query results, ingestion task status, document metadata, embedding
// vectors, latency samples, and counters.
//
// Store errors are never fatal for callers on the query path; the
// pipeline swallows them, so methods here just return them unwrapped.
type Service struct {
	redis  *RedisClient
	logger *logrus.Logger

	queryTTL     time.Duration
	embeddingTTL time.Duration
	taskTTL      time.Duration
	documentTTL  time.Duration
}

func NewService(redis *RedisClient, cfg config.CacheConfig, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		redis:        redis,
		logger:       logger,
		queryTTL:     cfg.QueryTTL,
		embeddingTTL: cfg.EmbeddingTTL,
		taskTTL:      cfg.TaskTTL,
		documentTTL:  cfg.DocumentTTL,
	}
}

// Fingerprint derives a stable cache key from the semantically relevant
// query inputs. Document id filters are sorted so set ordering cannot
// produce distinct keys for the same filter.
func Fingerprint(query string, topK int, documentIDs []string) string {
	ids := make([]string, len(documentIDs))
	copy(ids, documentIDs)
	sort.Strings(ids)

	h := sha256.Sum256([]byte(query + ":" + strconv.Itoa(topK) + ":" + strings.Join(ids, ",")))
	return hex.EncodeToString(h[:])[:16]
}

// GetQueryResult loads a cached query response into dest. Returns a
// redis.Nil-wrapped miss when absent; use IsMiss to distinguish.
func (s *Service) GetQueryResult(ctx context.Context, fingerprint string, dest interface{}) error {
	return s.redis.GetJSON(ctx, "query:"+fingerprint, dest)
}

func (s *Service) SetQueryResult(ctx context.Context, fingerprint string, value interface{}) error {
	return s.redis.SetJSON(ctx, "query:"+fingerprint, value, s.queryTTL)
}

// GetTaskStatus loads an ingestion task's status document into dest.
func (s *Service) GetTaskStatus(ctx context.Context, taskID string, dest interface{}) error {
	return s.redis.GetJSON(ctx, "task:"+taskID, dest)
}

func (s *Service) SetTaskStatus(ctx context.Context, taskID string, status interface{}) error {
	return s.redis.SetJSON(ctx, "task:"+taskID, status, s.taskTTL)
}

// GetDocumentMeta loads stored document metadata into dest.
func (s *Service) GetDocumentMeta(ctx context.Context, documentID string, dest interface{}) error {
	return s.redis.GetJSON(ctx, "doc:"+documentID+":meta", dest)
}

func (s *Service) SetDocumentMeta(ctx context.Context, documentID string, meta interface{}) error {
	return s.redis.SetJSON(ctx, "doc:"+documentID+":meta", meta, s.documentTTL)
}

// GetEmbedding returns a cached embedding for a text hash, or a miss.
func (s *Service) GetEmbedding(ctx context.Context, textHash string) ([]float32, error) {
	var embedding []float32
	if err := s.redis.GetJSON(ctx, "emb:"+textHash, &embedding); err != nil {
		return nil, err
	}
	return embedding, nil
}

func (s *Service) SetEmbedding(ctx context.Context, textHash string, embedding []float32) error {
	return s.redis.SetJSON(ctx, "emb:"+textHash, embedding, s.embeddingTTL)
}

// RecordLatency persists a latency sample, trimming the per-stage list
// to the rolling window. Errors are logged and swallowed: latency
// persistence is best effort.
func (s *Service) RecordLatency(ctx context.Context, stage string, latencyMS float64) {
	key := "metrics:latency:" + stage
	if err := s.redis.LPush(ctx, key, strconv.FormatFloat(latencyMS, 'f', -1, 64)); err != nil {
		s.logger.WithError(err).WithField("stage", stage).Debug("latency sample not persisted")
		return
	}
	if err := s.redis.LTrim(ctx, key, 0, latencyWindowSize-1); err != nil {
		s.logger.WithError(err).WithField("stage", stage).Debug("latency trim failed")
	}
}

// GetLatencies returns up to count recent samples for a stage, newest
// first.
func (s *Service) GetLatencies(ctx context.Context, stage string, count int) ([]float64, error) {
	values, err := s.redis.LRange(ctx, "metrics:latency:"+stage, 0, int64(count)-1)
	if err != nil {
		return nil, err
	}
	samples := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt latency sample %q: %w", v, err)
		}
		samples = append(samples, f)
	}
	return samples, nil
}

// IncrementCounter bumps a named counter (cache hits/misses). Errors are
// logged and swallowed.
func (s *Service) IncrementCounter(ctx context.Context, name string) {
	if _, err := s.redis.Incr(ctx, "counter:"+name); err != nil {
		s.logger.WithError(err).WithField("counter", name).Debug("counter increment failed")
	}
}

// GetCounter returns a counter value, zero when unset.
func (s *Service) GetCounter(ctx context.Context, name string) int64 {
	value, err := s.redis.Get(ctx, "counter:"+name)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Ping reports cache store liveness.
func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}

// HashText returns the sha256 hex digest used as the embedding cache key.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
