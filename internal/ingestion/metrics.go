package ingestion

import (
	"sync"
	"time"
)

// IngestMetrics tracks bridge throughput.
type IngestMetrics struct {
	MessagesReceived  int64
	MessagesProcessed int64
	MessagesFailed    int64
	MessagesDropped   int64
	LastProcessedAt   time.Time
	BufferSize        int
}

// MetricsTracker provides a goroutine-safe wrapper around IngestMetrics.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics IngestMetrics
}

// NewMetricsTracker builds a new tracker with zeroed metrics.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation in a thread-safe way.
func (t *MetricsTracker) Update(fn func(*IngestMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.metrics)
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() IngestMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}
