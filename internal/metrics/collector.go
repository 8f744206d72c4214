// Package metrics tracks per-stage latency distributions and cache
// hit/miss counters for the query pipeline.
package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/documind/documind/internal/cache"
)

// windowSize bounds the in-memory rolling sample window per stage.
const windowSize = 1000

// LatencyMetrics summarizes the rolling window for one stage.
type LatencyMetrics struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
	Mean  float64 `json:"mean_ms"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
}

// Collector accumulates latency samples and cache hit/miss counts.
// Samples are kept in bounded per-stage windows safe for concurrent
// append; counters are atomic. Samples are additionally persisted to
// the cache store and mirrored into Prometheus, both best effort.
type Collector struct {
	mu      sync.Mutex
	windows map[string][]float64

	hits   atomic.Int64
	misses atomic.Int64

	cacheSvc *cache.Service
	logger   *logrus.Logger

	promHits    prometheus.Counter
	promMisses  prometheus.Counter
	promLatency *prometheus.HistogramVec
}

// NewCollector creates a collector. cacheSvc may be nil (no
// persistence); registerer may be nil to skip Prometheus registration.
func NewCollector(cacheSvc *cache.Service, registerer prometheus.Registerer, logger *logrus.Logger) *Collector {
	if logger == nil {
		logger = logrus.New()
	}

	c := &Collector{
		windows:  make(map[string][]float64),
		cacheSvc: cacheSvc,
		logger:   logger,
		promHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documind_cache_hits_total",
			Help: "Query cache hits.",
		}),
		promMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documind_cache_misses_total",
			Help: "Query cache misses.",
		}),
		promLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "documind_stage_latency_ms",
			Help:    "Pipeline stage latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"stage"}),
	}

	if registerer != nil {
		registerer.MustRegister(c.promHits, c.promMisses, c.promLatency)
	}
	return c
}

// RecordLatency appends a sample to the stage's rolling window and
// persists it. Persistence failures are non-fatal.
func (c *Collector) RecordLatency(ctx context.Context, stage string, latencyMS float64) {
	c.mu.Lock()
	window := append(c.windows[stage], latencyMS)
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	c.windows[stage] = window
	c.mu.Unlock()

	c.promLatency.WithLabelValues(stage).Observe(latencyMS)

	if c.cacheSvc != nil {
		c.cacheSvc.RecordLatency(ctx, stage, latencyMS)
	}
}

// RecordCacheHit counts a query cache hit.
func (c *Collector) RecordCacheHit(ctx context.Context) {
	c.hits.Add(1)
	c.promHits.Inc()
	if c.cacheSvc != nil {
		c.cacheSvc.IncrementCounter(ctx, "cache_hits")
	}
}

// RecordCacheMiss counts a query cache miss.
func (c *Collector) RecordCacheMiss(ctx context.Context) {
	c.misses.Add(1)
	c.promMisses.Inc()
	if c.cacheSvc != nil {
		c.cacheSvc.IncrementCounter(ctx, "cache_misses")
	}
}

// CacheHitRatio returns hits/(hits+misses) for this process, zero when
// no lookups have happened.
func (c *Collector) CacheHitRatio() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Percentiles summarizes one stage's window, or nil when no samples
// exist. p95 requires at least 20 samples and p99 at least 100;
// below those thresholds the max stands in.
func (c *Collector) Percentiles(stage string) *LatencyMetrics {
	c.mu.Lock()
	window := c.windows[stage]
	values := make([]float64, len(window))
	copy(values, window)
	c.mu.Unlock()

	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)
	n := len(values)

	m := &LatencyMetrics{
		Stage: stage,
		Count: n,
		P50:   values[n/2],
		P95:   values[n-1],
		P99:   values[n-1],
		Min:   values[0],
		Max:   values[n-1],
	}
	if n >= 20 {
		m.P95 = values[int(float64(n)*0.95)]
	}
	if n >= 100 {
		m.P99 = values[int(float64(n)*0.99)]
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m.Mean = sum / float64(n)
	return m
}

// AllMetrics returns summaries for every stage with samples.
func (c *Collector) AllMetrics() map[string]*LatencyMetrics {
	c.mu.Lock()
	stages := make([]string, 0, len(c.windows))
	for stage := range c.windows {
		stages = append(stages, stage)
	}
	c.mu.Unlock()

	result := make(map[string]*LatencyMetrics, len(stages))
	for _, stage := range stages {
		if m := c.Percentiles(stage); m != nil {
			result[stage] = m
		}
	}
	return result
}

// Reset clears all rolling windows. Counters are preserved.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.windows = make(map[string][]float64)
	c.mu.Unlock()
}
