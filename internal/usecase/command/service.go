package command

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	domainCommand "github.com/VEB4697/smart-iot/internal/domain/command"
	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/logger"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements command queue use cases
type Service struct {
	deviceRepo  domainDevice.Repository
	commandRepo domainCommand.Repository
	maxPending  int
}

// NewService creates a new command service. maxPending caps the number of
// undelivered commands per device; zero disables the cap.
func NewService(deviceRepo domainDevice.Repository, commandRepo domainCommand.Repository, maxPending int) *Service {
	return &Service{
		deviceRepo:  deviceRepo,
		commandRepo: commandRepo,
		maxPending:  maxPending,
	}
}

// Enqueue appends a pending command for the device. Only the owning account
// may queue commands. No dedup: submitting the same command twice queues it
// twice.
func (s *Service) Enqueue(ctx context.Context, accountID, deviceID uuid.UUID, req *EnqueueRequest) (*EnqueueResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid command", err)
	}

	params, err := normalizeParameters(req.Parameters)
	if err != nil {
		return nil, appErrors.NewAppError("INVALID_PARAMETERS", "Invalid parameters JSON format.", err)
	}

	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.OwnerAccountID == nil || *device.OwnerAccountID != accountID {
		return nil, domainDevice.ErrNotOwner
	}

	if s.maxPending > 0 {
		pending, err := s.commandRepo.CountPending(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if pending >= int64(s.maxPending) {
			return nil, domainCommand.ErrQueueFull
		}
	}

	cmd := &domainCommand.Command{
		DeviceID:    deviceID,
		CommandType: req.CommandType,
		Parameters:  params,
	}
	if err := s.commandRepo.Enqueue(ctx, cmd); err != nil {
		return nil, err
	}

	logger.Info("Command queued",
		zap.Int64("command_id", cmd.ID),
		zap.String("device_id", deviceID.String()),
		zap.String("command_type", cmd.CommandType),
		zap.String("event", "command_queued"),
	)

	return &EnqueueResponse{
		CommandID:  cmd.ID,
		DeviceName: device.Name,
	}, nil
}

// Poll hands the device its oldest pending command, or nil when the queue is
// empty. Every poll counts as inbound contact: the device is marked online
// even when nothing is queued. Unknown devices self-register with an unset
// type on first poll.
func (s *Service) Poll(ctx context.Context, apiKey string) (*DeliveredCommand, error) {
	now := time.Now()
	device, created, err := s.deviceRepo.GetOrCreate(ctx, apiKey, domainDevice.TypeUnset, now)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := s.deviceRepo.TouchLiveness(ctx, device.ID, now); err != nil {
			return nil, err
		}
	}

	cmd, err := s.commandRepo.DequeueOldestPending(ctx, device.ID)
	if err != nil {
		if err == domainCommand.ErrNoPendingCommand {
			return nil, nil
		}
		return nil, err
	}

	logger.Info("Command delivered",
		zap.Int64("command_id", cmd.ID),
		zap.String("device_id", device.ID.String()),
		zap.String("command_type", cmd.CommandType),
		zap.String("event", "command_delivered"),
	)

	return &DeliveredCommand{
		CommandID:   cmd.ID,
		CommandType: cmd.CommandType,
		Parameters:  s.decodeParameters(cmd),
	}, nil
}

// Report records that the device executed a previously delivered command.
// Reporting is also inbound contact, so liveness is refreshed.
func (s *Service) Report(ctx context.Context, req *ReportRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR",
			"Missing data (device_api_key or command_id).", err)
	}

	now := time.Now()
	device, err := s.deviceRepo.GetByAPIKey(ctx, req.DeviceAPIKey)
	if err != nil {
		return err
	}
	if err := s.deviceRepo.TouchLiveness(ctx, device.ID, now); err != nil {
		return err
	}

	if err := s.commandRepo.RecordExecution(ctx, device.ID, req.CommandID, req.Response, now); err != nil {
		return err
	}

	logger.Info("Command execution reported",
		zap.Int64("command_id", req.CommandID),
		zap.String("device_id", device.ID.String()),
		zap.String("event", "command_executed"),
	)

	return nil
}

// decodeParameters turns stored parameters into the object form a device
// expects. Parameters persisted as an encoded string are decoded; decode
// failure degrades to empty parameters rather than failing the poll.
func (s *Service) decodeParameters(cmd *domainCommand.Command) map[string]interface{} {
	raw := bytes.TrimSpace(cmd.Parameters)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]interface{}{}
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			logger.Error("Failed to decode command parameters",
				zap.Int64("command_id", cmd.ID),
				zap.Error(err),
			)
			return map[string]interface{}{}
		}
		raw = []byte(inner)
	}

	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		logger.Error("Failed to decode command parameters",
			zap.Int64("command_id", cmd.ID),
			zap.Error(err),
		)
		return map[string]interface{}{}
	}

	return params
}

// normalizeParameters requires enqueue parameters to be a JSON object when
// present.
func normalizeParameters(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return trimmed, nil
}
