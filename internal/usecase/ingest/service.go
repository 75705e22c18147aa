package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/domain/telemetry"
	"github.com/VEB4697/smart-iot/internal/logger"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"go.uber.org/zap"
)

// Service implements telemetry ingest use cases
type Service struct {
	deviceRepo    domainDevice.Repository
	telemetryRepo telemetry.Repository
}

// NewService creates a new ingest service
func NewService(deviceRepo domainDevice.Repository, telemetryRepo telemetry.Repository) *Service {
	return &Service{
		deviceRepo:    deviceRepo,
		telemetryRepo: telemetryRepo,
	}
}

// Ingest records one sensor report. Unknown devices self-register on first
// contact; known devices get their liveness refreshed on every report.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR",
			"Missing data (device_api_key, device_type, or sensor_data).", err)
	}

	payload, err := resolvePayload(req.SensorData)
	if err != nil {
		return appErrors.NewAppError("INVALID_PAYLOAD",
			"sensor_data must be a valid JSON object.", err)
	}

	now := time.Now()
	device, created, err := s.deviceRepo.GetOrCreate(ctx, req.DeviceAPIKey, req.DeviceType, now)
	if err != nil {
		return err
	}
	if !created {
		if err := s.deviceRepo.TouchLiveness(ctx, device.ID, now); err != nil {
			return err
		}
	}

	reading := &telemetry.Reading{
		DeviceID:  device.ID,
		Payload:   payload,
		CreatedAt: now,
	}
	if err := s.telemetryRepo.Insert(ctx, reading); err != nil {
		return err
	}

	logger.Info("Telemetry ingested",
		zap.String("device_id", device.ID.String()),
		zap.String("device_type", device.DeviceType),
		zap.Bool("first_contact", created),
		zap.String("event", "telemetry_ingested"),
	)

	return nil
}

// resolvePayload accepts a JSON object, or a JSON string whose contents parse
// as one, and returns the object form. Anything else is rejected.
func resolvePayload(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, appErrors.ErrInvalidInput
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]interface{}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		return trimmed, nil
	case '"':
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, err
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(inner), &obj); err != nil {
			return nil, err
		}
		return json.RawMessage(inner), nil
	default:
		return nil, appErrors.ErrInvalidInput
	}
}
