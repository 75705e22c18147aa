package ingestion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/domain/telemetry"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/memory"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(workers, buffer int) (*Dispatcher, device.Repository, telemetry.Repository) {
	deviceRepo := memory.NewDeviceStore()
	telemetryRepo := memory.NewTelemetryStore()
	service := ingest.NewService(deviceRepo, telemetryRepo)
	return NewDispatcher(service, workers, buffer), deviceRepo, telemetryRepo
}

func TestDispatcherProcessesMessages(t *testing.T) {
	d, deviceRepo, telemetryRepo := newTestDispatcher(2, 8)
	ctx := context.Background()

	d.Start()
	d.Dispatch(&ingest.IngestRequest{
		DeviceAPIKey: "bridge-key",
		DeviceType:   "water_meter",
		SensorData:   json.RawMessage(`{"flow": 1.5}`),
	})
	d.Stop()

	dev, err := deviceRepo.GetByAPIKey(ctx, "bridge-key")
	require.NoError(t, err)

	reading, err := telemetryRepo.LatestByDevice(ctx, dev.ID)
	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.JSONEq(t, `{"flow": 1.5}`, string(reading.Payload))

	m := d.Metrics()
	assert.Equal(t, int64(1), m.MessagesReceived)
	assert.Equal(t, int64(1), m.MessagesProcessed)
	assert.Zero(t, m.MessagesFailed)
	assert.Zero(t, m.MessagesDropped)
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	// One slot and no running workers, so the second message has nowhere to go.
	d, _, _ := newTestDispatcher(1, 1)

	d.Dispatch(&ingest.IngestRequest{
		DeviceAPIKey: "key-a",
		DeviceType:   "relay",
		SensorData:   json.RawMessage(`{"n": 1}`),
	})
	d.Dispatch(&ingest.IngestRequest{
		DeviceAPIKey: "key-b",
		DeviceType:   "relay",
		SensorData:   json.RawMessage(`{"n": 2}`),
	})

	m := d.Metrics()
	assert.Equal(t, int64(1), m.MessagesReceived)
	assert.Equal(t, int64(1), m.MessagesDropped)

	// Draining still processes the message that made it into the buffer.
	d.Start()
	d.Stop()

	m = d.Metrics()
	assert.Equal(t, int64(1), m.MessagesProcessed)
}

func TestDispatcherCountsFailures(t *testing.T) {
	d, _, _ := newTestDispatcher(1, 4)

	d.Start()
	d.Dispatch(&ingest.IngestRequest{
		DeviceAPIKey: "key-a",
		DeviceType:   "relay",
		SensorData:   json.RawMessage(`[1, 2, 3]`),
	})
	d.Stop()

	m := d.Metrics()
	assert.Equal(t, int64(1), m.MessagesReceived)
	assert.Equal(t, int64(1), m.MessagesFailed)
	assert.Zero(t, m.MessagesProcessed)
}

func TestDispatcherIgnoresDispatchAfterStop(t *testing.T) {
	d, _, _ := newTestDispatcher(1, 4)

	d.Start()
	d.Stop()

	// The requests channel is closed at this point; Dispatch must notice the
	// cancelled context instead of sending.
	d.Dispatch(&ingest.IngestRequest{
		DeviceAPIKey: "late-key",
		DeviceType:   "relay",
		SensorData:   json.RawMessage(`{}`),
	})

	m := d.Metrics()
	assert.Zero(t, m.MessagesReceived)
	assert.Zero(t, m.MessagesDropped)
}
