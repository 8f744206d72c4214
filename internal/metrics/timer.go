package metrics

import (
	"context"
	"time"
)

// Timer measures the stages of a single request. It is not safe for
// concurrent use; each request owns its own timer.
type Timer struct {
	start  time.Time
	stages map[string]float64
	order  []string
}

func NewTimer() *Timer {
	return &Timer{
		start:  time.Now(),
		stages: make(map[string]float64),
	}
}

// Stage times fn and records its duration under name.
func (t *Timer) Stage(name string, fn func() error) error {
	begin := time.Now()
	err := fn()
	t.record(name, float64(time.Since(begin).Microseconds())/1000)
	return err
}

func (t *Timer) record(name string, ms float64) {
	if _, seen := t.stages[name]; !seen {
		t.order = append(t.order, name)
	}
	t.stages[name] = ms
}

// StageMS returns a recorded stage duration, zero when absent.
func (t *Timer) StageMS(name string) float64 {
	return t.stages[name]
}

// TotalMS returns the elapsed time since the timer was created.
func (t *Timer) TotalMS() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000
}

// RecordAll flushes every stage measurement into the collector.
func (t *Timer) RecordAll(ctx context.Context, collector *Collector) {
	for _, name := range t.order {
		collector.RecordLatency(ctx, name, t.stages[name])
	}
}
