package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	return NewCollector(nil, prometheus.NewRegistry(), nil)
}

func TestCollector_PercentilesEmpty(t *testing.T) {
	c := newTestCollector()

	assert.Nil(t, c.Percentiles("search"))
	assert.Empty(t, c.AllMetrics())
}

func TestCollector_PercentilesSmallSample(t *testing.T) {
	c := newTestCollector()
	ctx := context.Background()

	c.RecordLatency(ctx, "search", 10)
	c.RecordLatency(ctx, "search", 20)
	c.RecordLatency(ctx, "search", 30)

	m := c.Percentiles("search")
	require.NotNil(t, m)
	assert.Equal(t, 3, m.Count)
	assert.Equal(t, 20.0, m.P50)
	// Below the sample thresholds, p95/p99 fall back to the max.
	assert.Equal(t, 30.0, m.P95)
	assert.Equal(t, 30.0, m.P99)
	assert.Equal(t, 10.0, m.Min)
	assert.Equal(t, 30.0, m.Max)
	assert.InDelta(t, 20.0, m.Mean, 0.001)
}

func TestCollector_PercentilesLargeSample(t *testing.T) {
	c := newTestCollector()
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		c.RecordLatency(ctx, "rerank", float64(i))
	}

	m := c.Percentiles("rerank")
	require.NotNil(t, m)
	assert.Equal(t, 100, m.Count)
	assert.Equal(t, 51.0, m.P50)
	assert.Equal(t, 96.0, m.P95)
	assert.Equal(t, 100.0, m.P99)
}

func TestCollector_WindowBounded(t *testing.T) {
	c := newTestCollector()
	ctx := context.Background()

	for i := 0; i < 1500; i++ {
		c.RecordLatency(ctx, "embedding", float64(i))
	}

	m := c.Percentiles("embedding")
	require.NotNil(t, m)
	assert.Equal(t, 1000, m.Count)
	// The oldest 500 samples were trimmed away.
	assert.Equal(t, 500.0, m.Min)
}

func TestCollector_ConcurrentAppendSafe(t *testing.T) {
	c := newTestCollector()
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.RecordLatency(ctx, "generation", float64(i))
			}
		}()
	}
	wg.Wait()

	m := c.Percentiles("generation")
	require.NotNil(t, m)
	assert.Equal(t, 1000, m.Count)
}

func TestCollector_CacheHitRatio(t *testing.T) {
	c := newTestCollector()
	ctx := context.Background()

	assert.Equal(t, 0.0, c.CacheHitRatio())

	c.RecordCacheHit(ctx)
	c.RecordCacheHit(ctx)
	c.RecordCacheHit(ctx)
	c.RecordCacheMiss(ctx)

	assert.InDelta(t, 0.75, c.CacheHitRatio(), 0.001)
}

func TestTimer_StagesAndTotal(t *testing.T) {
	timer := NewTimer()

	err := timer.Stage("embedding", func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Greater(t, timer.StageMS("embedding"), 5.0)
	assert.Equal(t, 0.0, timer.StageMS("missing"))
	assert.GreaterOrEqual(t, timer.TotalMS(), timer.StageMS("embedding"))
}

func TestTimer_RecordAll(t *testing.T) {
	c := newTestCollector()
	timer := NewTimer()

	_ = timer.Stage("search", func() error { return nil })
	_ = timer.Stage("rerank", func() error { return nil })

	timer.RecordAll(context.Background(), c)

	assert.NotNil(t, c.Percentiles("search"))
	assert.NotNil(t, c.Percentiles("rerank"))
}
