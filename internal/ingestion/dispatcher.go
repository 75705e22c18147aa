package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/VEB4697/smart-iot/internal/logger"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"

	"go.uber.org/zap"
)

const (
	defaultWorkerCount = 4
	defaultBufferSize  = 256
	ingestTimeout      = 10 * time.Second
)

// Dispatcher fans inbound telemetry out to a pool of workers so that database
// writes do not stall the MQTT receive path. When the buffer is full the
// message is dropped rather than blocking the broker connection.
type Dispatcher struct {
	service *ingest.Service

	requests    chan *ingest.IngestRequest
	workerCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *MetricsTracker
}

// NewDispatcher creates a dispatcher over the ingest service.
func NewDispatcher(service *ingest.Service, workerCount, bufferSize int) *Dispatcher {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		service:     service,
		requests:    make(chan *ingest.IngestRequest, bufferSize),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     NewMetricsTracker(),
	}
}

// Start starts the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	logger.Info("Ingest dispatcher started",
		zap.Int("workers", d.workerCount),
		zap.Int("buffer_size", cap(d.requests)),
	)
}

// Stop stops accepting new messages and drains what is already queued.
func (d *Dispatcher) Stop() {
	d.cancel()
	close(d.requests)
	d.wg.Wait()

	logger.Info("Ingest dispatcher stopped")
}

// Dispatch queues a telemetry request for processing.
func (d *Dispatcher) Dispatch(req *ingest.IngestRequest) {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	select {
	case d.requests <- req:
		d.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(d.requests)
		})
	default:
		logger.Warn("Ingest buffer full, dropping uplink message",
			zap.String("device_api_key", req.DeviceAPIKey),
		)
		d.metrics.Update(func(m *IngestMetrics) {
			m.MessagesDropped++
		})
	}
}

// Metrics returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Metrics() IngestMetrics {
	return d.metrics.Snapshot()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for req := range d.requests {
		// Writes get their own deadline so a shutdown still drains the
		// buffer instead of aborting mid-flight inserts.
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		err := d.service.Ingest(ctx, req)
		cancel()

		if err != nil {
			logger.Warn("Failed to ingest bridged telemetry",
				zap.String("device_api_key", req.DeviceAPIKey),
				zap.Error(err),
			)
			d.metrics.Update(func(m *IngestMetrics) {
				m.MessagesFailed++
			})
			continue
		}

		d.metrics.Update(func(m *IngestMetrics) {
			m.MessagesProcessed++
			m.LastProcessedAt = time.Now()
		})
	}
}
