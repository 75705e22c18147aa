package onboarding

import (
	"context"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/logger"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements device onboarding use cases: the pre-registration
// availability check, claiming a device for an account and releasing it
// again.
type Service struct {
	deviceRepo domainDevice.Repository
	threshold  time.Duration
}

// NewService creates a new onboarding service. threshold is the liveness
// window a device must have checked in within to be claimable.
func NewService(deviceRepo domainDevice.Repository, threshold time.Duration) *Service {
	if threshold <= 0 {
		threshold = domainDevice.DefaultLivenessThreshold
	}
	return &Service{
		deviceRepo: deviceRepo,
		threshold:  threshold,
	}
}

// Check reports whether the device with the given API key can be registered.
// The device must exist, be unclaimed and have checked in recently. The check
// never writes anything; claiming is a separate operation that revalidates.
func (s *Service) Check(ctx context.Context, apiKey string) (*CheckResponse, error) {
	device, err := s.deviceRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if device.IsRegistered {
		return nil, domainDevice.ErrAlreadyClaimed
	}
	if !device.IsLive(time.Now(), s.threshold) {
		return nil, domainDevice.ErrNotRecentlyOnline
	}

	return &CheckResponse{
		DeviceName: device.Name,
		DeviceType: device.DeviceType,
	}, nil
}

// Claim registers the device under the given account. The device must be
// unclaimed and recently online; of two concurrent claims exactly one wins
// and the other observes the conflict.
func (s *Service) Claim(ctx context.Context, accountID uuid.UUID, req *ClaimRequest) (*ClaimResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Device API Key is required.", err)
	}

	device, err := s.deviceRepo.GetByAPIKey(ctx, req.DeviceAPIKey)
	if err != nil {
		return nil, err
	}

	if device.OwnerAccountID != nil {
		return nil, domainDevice.ErrAlreadyClaimed
	}
	if !device.IsLive(time.Now(), s.threshold) {
		return nil, domainDevice.ErrNotRecentlyOnline
	}

	if err := s.deviceRepo.Claim(ctx, device.ID, accountID); err != nil {
		return nil, err
	}

	logger.Info("Device claimed",
		zap.String("device_id", device.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("event", "device_claimed"),
	)

	return &ClaimResponse{
		DeviceID:   device.ID,
		DeviceName: device.Name,
	}, nil
}

// Release removes the device from the given account. Only the owning account
// may release it.
func (s *Service) Release(ctx context.Context, accountID, deviceID uuid.UUID) (*ReleaseResponse, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := s.deviceRepo.Release(ctx, deviceID, accountID); err != nil {
		return nil, err
	}

	logger.Info("Device released",
		zap.String("device_id", deviceID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("event", "device_released"),
	)

	return &ReleaseResponse{
		DeviceID:   device.ID,
		DeviceName: device.Name,
	}, nil
}
