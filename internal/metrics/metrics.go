// Package metrics provides the metrics-sink interface injected throughout
// the pipeline and a lightweight in-process collector implementation.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives pipeline metrics. Implementations must be safe for
// concurrent use. A Sink is injected at construction; components never reach
// for a global registry.
type Sink interface {
	// Inc increments a named counter. Labels are appended to the metric
	// name as dot-separated suffixes (e.g. "job_processed.summary.failed").
	Inc(name string, labels ...string)

	// Add adds delta to a named counter. Used where a single event carries
	// a count, such as the size of a claimed batch.
	Add(name string, delta int64, labels ...string)

	// Observe records a duration for a named timing metric.
	Observe(name string, d time.Duration, labels ...string)
}

// Collector is an atomic in-memory Sink. It is cheap enough to leave enabled
// in production and exposes a snapshot for logging or an exporter.
type Collector struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	timings  map[string]*timing
}

type timing struct {
	count atomic.Int64
	total atomic.Int64 // nanoseconds
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]*atomic.Int64),
		timings:  make(map[string]*timing),
	}
}

func metricKey(name string, labels []string) string {
	for _, label := range labels {
		name += "." + label
	}
	return name
}

// Inc implements Sink.
func (c *Collector) Inc(name string, labels ...string) {
	c.Add(name, 1, labels...)
}

// Add implements Sink.
func (c *Collector) Add(name string, delta int64, labels ...string) {
	key := metricKey(name, labels)

	c.mu.RLock()
	counter, ok := c.counters[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		counter, ok = c.counters[key]
		if !ok {
			counter = &atomic.Int64{}
			c.counters[key] = counter
		}
		c.mu.Unlock()
	}

	counter.Add(delta)
}

// Observe implements Sink.
func (c *Collector) Observe(name string, d time.Duration, labels ...string) {
	key := metricKey(name, labels)

	c.mu.RLock()
	t, ok := c.timings[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		t, ok = c.timings[key]
		if !ok {
			t = &timing{}
			c.timings[key] = t
		}
		c.mu.Unlock()
	}

	t.count.Add(1)
	t.total.Add(int64(d))
}

// Counter returns the current value of a counter, zero if never incremented.
func (c *Collector) Counter(name string, labels ...string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.counters[metricKey(name, labels)]; ok {
		return counter.Load()
	}
	return 0
}

// Snapshot returns all counter values keyed by metric name, sorted keys.
func (c *Collector) Snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]int64, len(c.counters))
	keys := make([]string, 0, len(c.counters))
	for key := range c.counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		snapshot[key] = c.counters[key].Load()
	}
	return snapshot
}

// Nop is a Sink that discards everything. Useful in tests.
type Nop struct{}

// Inc implements Sink.
func (Nop) Inc(string, ...string) {}

// Add implements Sink.
func (Nop) Add(string, int64, ...string) {}

// Observe implements Sink.
func (Nop) Observe(string, time.Duration, ...string) {}
