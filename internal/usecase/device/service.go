package device

import (
	"context"
	"encoding/json"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/domain/telemetry"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"github.com/google/uuid"
)

var emptyPayload = json.RawMessage("{}")

// Service implements the owner-facing device read use cases
type Service struct {
	deviceRepo    domainDevice.Repository
	telemetryRepo telemetry.Repository
	threshold     time.Duration
}

// NewService creates a new device service. threshold is the liveness window
// used to derive the online flag in responses.
func NewService(deviceRepo domainDevice.Repository, telemetryRepo telemetry.Repository, threshold time.Duration) *Service {
	if threshold <= 0 {
		threshold = domainDevice.DefaultLivenessThreshold
	}
	return &Service{
		deviceRepo:    deviceRepo,
		telemetryRepo: telemetryRepo,
		threshold:     threshold,
	}
}

// ListDevices returns the account's registered devices with their newest
// payloads, least recently seen first.
func (s *Service) ListDevices(ctx context.Context, accountID uuid.UUID) ([]DeviceWithLatestResponse, error) {
	devices, err := s.deviceRepo.ListByOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]DeviceWithLatestResponse, len(devices))
	for i, d := range devices {
		latest, err := s.telemetryRepo.LatestByDevice(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		out[i] = DeviceWithLatestResponse{
			Device:     *ToDeviceResponse(d, now, s.threshold),
			LatestData: latestPayload(latest),
		}
	}

	return out, nil
}

// GetDevice returns one of the account's devices with its newest payload.
func (s *Service) GetDevice(ctx context.Context, accountID, deviceID uuid.UUID) (*DeviceWithLatestResponse, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(device, accountID); err != nil {
		return nil, err
	}

	latest, err := s.telemetryRepo.LatestByDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	return &DeviceWithLatestResponse{
		Device:     *ToDeviceResponse(device, time.Now(), s.threshold),
		LatestData: latestPayload(latest),
	}, nil
}

// ListReadings returns the device's readings for the last q.Hours hours
// (default 24), oldest first.
func (s *Service) ListReadings(ctx context.Context, accountID, deviceID uuid.UUID, q *ReadingsQuery) ([]ReadingResponse, error) {
	if err := utils.ValidateStruct(q); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid readings window", err)
	}
	hours := q.Hours
	if hours <= 0 {
		hours = 24
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwned(device, accountID); err != nil {
		return nil, err
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.telemetryRepo.ListByDeviceSince(ctx, device.ID, since)
	if err != nil {
		return nil, err
	}

	out := make([]ReadingResponse, len(readings))
	for i, r := range readings {
		out[i] = ReadingResponse{
			Timestamp: r.CreatedAt,
			Data:      r.Payload,
		}
	}

	return out, nil
}

func latestPayload(r *telemetry.Reading) json.RawMessage {
	if r == nil || len(r.Payload) == 0 {
		return emptyPayload
	}
	return r.Payload
}
