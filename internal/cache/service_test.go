package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documind/documind/internal/config"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClientFromAddr(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(client, config.CacheConfig{
		QueryTTL:     time.Hour,
		EmbeddingTTL: 24 * time.Hour,
		TaskTTL:      time.Hour,
		DocumentTTL:  7 * 24 * time.Hour,
	}, nil)
	return svc, mr
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("refund policy", 5, []string{"doc-1", "doc-2"})
	b := Fingerprint("refund policy", 5, []string{"doc-1", "doc-2"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFingerprint_OrderInsensitiveDocIDs(t *testing.T) {
	a := Fingerprint("q", 5, []string{"doc-2", "doc-1"})
	b := Fingerprint("q", 5, []string{"doc-1", "doc-2"})

	assert.Equal(t, a, b)
}

func TestFingerprint_DistinctInputsDistinctKeys(t *testing.T) {
	base := Fingerprint("q", 5, nil)

	assert.NotEqual(t, base, Fingerprint("q2", 5, nil))
	assert.NotEqual(t, base, Fingerprint("q", 10, nil))
	assert.NotEqual(t, base, Fingerprint("q", 5, []string{"doc-1"}))
}

func TestService_QueryResultRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	type payload struct {
		Answer string `json:"answer"`
	}

	key := Fingerprint("q", 5, nil)

	var missed payload
	err := svc.GetQueryResult(ctx, key, &missed)
	require.Error(t, err)
	assert.True(t, IsMiss(err))

	require.NoError(t, svc.SetQueryResult(ctx, key, payload{Answer: "42"}))

	var got payload
	require.NoError(t, svc.GetQueryResult(ctx, key, &got))
	assert.Equal(t, "42", got.Answer)
}

func TestService_QueryResultExpires(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	key := Fingerprint("q", 5, nil)
	require.NoError(t, svc.SetQueryResult(ctx, key, map[string]string{"answer": "x"}))

	mr.FastForward(2 * time.Hour)

	var dest map[string]string
	err := svc.GetQueryResult(ctx, key, &dest)
	assert.True(t, IsMiss(err))
}

func TestService_TaskStatusRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	status := map[string]interface{}{"status": "chunking", "progress": 0.3}
	require.NoError(t, svc.SetTaskStatus(ctx, "task-1", status))

	var got map[string]interface{}
	require.NoError(t, svc.GetTaskStatus(ctx, "task-1", &got))
	assert.Equal(t, "chunking", got["status"])

	err := svc.GetTaskStatus(ctx, "unknown", &got)
	assert.True(t, IsMiss(err))
}

func TestService_EmbeddingRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	hash := HashText("some chunk text")
	_, err := svc.GetEmbedding(ctx, hash)
	assert.True(t, IsMiss(err))

	require.NoError(t, svc.SetEmbedding(ctx, hash, []float32{0.1, 0.2, 0.3}))

	got, err := svc.GetEmbedding(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
}

func TestService_LatencyWindowTrimmed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 1100; i++ {
		svc.RecordLatency(ctx, "search", float64(i))
	}

	samples, err := svc.GetLatencies(ctx, "search", 2000)
	require.NoError(t, err)
	assert.Len(t, samples, 1000)
	// Newest first.
	assert.Equal(t, float64(1099), samples[0])
}

func TestService_Counters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), svc.GetCounter(ctx, "cache_hits"))

	svc.IncrementCounter(ctx, "cache_hits")
	svc.IncrementCounter(ctx, "cache_hits")
	svc.IncrementCounter(ctx, "cache_misses")

	assert.Equal(t, int64(2), svc.GetCounter(ctx, "cache_hits"))
	assert.Equal(t, int64(1), svc.GetCounter(ctx, "cache_misses"))
}

func TestService_CounterFailureIsSwallowed(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	// Must not panic or propagate once the store is gone.
	svc.IncrementCounter(context.Background(), "cache_hits")
	svc.RecordLatency(context.Background(), "search", 1.0)
	assert.Equal(t, int64(0), svc.GetCounter(context.Background(), "cache_hits"))
}
