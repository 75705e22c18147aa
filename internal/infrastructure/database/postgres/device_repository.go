package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// DeviceRepository implements the device domain Repository interface
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) GetOrCreate(ctx context.Context, apiKey, deviceType string, seenAt time.Time) (*domainDevice.Device, bool, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).Where("api_key = ?", apiKey).First(&dbModel).Error
	if err == nil {
		if err := r.backfillType(ctx, &dbModel, deviceType); err != nil {
			return nil, false, err
		}
		return toDeviceEntity(&dbModel), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to get device: %w", err)
	}

	deviceTypeValue := deviceType
	if deviceTypeValue == "" {
		deviceTypeValue = domainDevice.TypeUnset
	}
	seen := seenAt
	d := &domainDevice.Device{
		ID:         uuid.New(),
		APIKey:     apiKey,
		DeviceType: deviceTypeValue,
		Name:       domainDevice.DeriveName(deviceType, apiKey),
		IsOnline:   true,
		LastSeen:   &seen,
		CreatedAt:  seenAt,
		UpdatedAt:  seenAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(toDeviceModel(d)).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Lost the insert race; the winner's row is authoritative.
			return r.getExisting(ctx, apiKey, deviceType)
		}
		return nil, false, fmt.Errorf("failed to create device: %w", err)
	}

	return d, true, nil
}

func (r *DeviceRepository) getExisting(ctx context.Context, apiKey, deviceType string) (*domainDevice.Device, bool, error) {
	var dbModel models.DeviceModel
	if err := r.db.DB.WithContext(ctx).Where("api_key = ?", apiKey).First(&dbModel).Error; err != nil {
		return nil, false, fmt.Errorf("failed to get device after insert conflict: %w", err)
	}
	if err := r.backfillType(ctx, &dbModel, deviceType); err != nil {
		return nil, false, err
	}
	return toDeviceEntity(&dbModel), false, nil
}

// backfillType fills in the type and derived name of a device that is still
// unset. First writer wins: the conditional update never overwrites a type
// that a concurrent call already set.
func (r *DeviceRepository) backfillType(ctx context.Context, dbModel *models.DeviceModel, deviceType string) error {
	if deviceType == "" || deviceType == domainDevice.TypeUnset {
		return nil
	}
	if dbModel.DeviceType != "" && dbModel.DeviceType != domainDevice.TypeUnset {
		return nil
	}

	name := domainDevice.DeriveName(deviceType, dbModel.APIKey)
	now := time.Now()
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND device_type = ?", dbModel.ID, domainDevice.TypeUnset).
		Updates(map[string]interface{}{
			"device_type": deviceType,
			"name":        name,
			"updated_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to backfill device type: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		dbModel.DeviceType = deviceType
		dbModel.Name = name
		dbModel.UpdatedAt = now
		return nil
	}

	// A concurrent call set the type first; reload to return its values.
	if err := r.db.DB.WithContext(ctx).Where("id = ?", dbModel.ID).First(dbModel).Error; err != nil {
		return fmt.Errorf("failed to reload device after type backfill: %w", err)
	}
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID uuid.UUID) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", deviceID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) TouchLiveness(ctx context.Context, deviceID uuid.UUID, seenAt time.Time) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", deviceID).
		Updates(map[string]interface{}{
			"is_online":  true,
			"last_seen":  seenAt,
			"updated_at": seenAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to touch liveness: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Claim(ctx context.Context, deviceID, accountID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND owner_account_id IS NULL", deviceID).
		Updates(map[string]interface{}{
			"owner_account_id": accountID,
			"is_registered":    true,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to claim device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, deviceID); err != nil {
			return err
		}
		return domainDevice.ErrAlreadyClaimed
	}

	return nil
}

func (r *DeviceRepository) Release(ctx context.Context, deviceID, accountID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ? AND owner_account_id = ?", deviceID, accountID).
		Updates(map[string]interface{}{
			"owner_account_id": nil,
			"is_registered":    false,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to release device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, deviceID); err != nil {
			return err
		}
		return domainDevice.ErrNotOwner
	}

	return nil
}

func (r *DeviceRepository) ListByOwner(ctx context.Context, accountID uuid.UUID) ([]*domainDevice.Device, error) {
	var dbModels []models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("owner_account_id = ? AND is_registered = ?", accountID, true).
		Order("last_seen ASC NULLS FIRST").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = toDeviceEntity(&dbModels[i])
	}

	return devices, nil
}

// Helper functions to convert between domain entities and database models

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:             d.ID,
		APIKey:         d.APIKey,
		DeviceType:     d.DeviceType,
		Name:           d.Name,
		OwnerAccountID: d.OwnerAccountID,
		IsRegistered:   d.IsRegistered,
		IsOnline:       d.IsOnline,
		LastSeen:       d.LastSeen,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:             m.ID,
		APIKey:         m.APIKey,
		DeviceType:     m.DeviceType,
		Name:           m.Name,
		OwnerAccountID: m.OwnerAccountID,
		IsRegistered:   m.IsRegistered,
		IsOnline:       m.IsOnline,
		LastSeen:       m.LastSeen,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
