package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_AcquireRelease(t *testing.T) {
	s := NewSemaphore(2)

	require.NoError(t, s.Acquire(context.Background()))
	require.NoError(t, s.Acquire(context.Background()))
	assert.Equal(t, 2, s.Current())
	assert.Equal(t, 0, s.Available())

	assert.False(t, s.TryAcquire())

	s.Release()
	assert.Equal(t, 1, s.Current())
	assert.True(t, s.TryAcquire())
}

func TestSemaphore_AcquireRespectsContext(t *testing.T) {
	s := NewSemaphore(1)
	require.NoError(t, s.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSemaphore_DoBoundsConcurrency(t *testing.T) {
	s := NewSemaphore(3)

	var mu sync.Mutex
	inFlight := 0
	peak := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func() error {
				mu.Lock()
				inFlight++
				if inFlight > peak {
					peak = inFlight
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 3)
	assert.Equal(t, 0, s.Current())
}

func TestNewSemaphore_ClampsNonPositive(t *testing.T) {
	s := NewSemaphore(0)
	assert.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire())
}
