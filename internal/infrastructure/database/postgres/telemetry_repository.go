package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VEB4697/smart-iot/internal/domain/telemetry"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TelemetryRepository implements the telemetry domain Repository interface
type TelemetryRepository struct {
	db *DB
}

// NewTelemetryRepository creates a new telemetry repository
func NewTelemetryRepository(db *DB) telemetry.Repository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) Insert(ctx context.Context, reading *telemetry.Reading) error {
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now()
	}

	dbModel := toReadingModel(reading)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	reading.ID = dbModel.ID
	return nil
}

func (r *TelemetryRepository) LatestByDevice(ctx context.Context, deviceID uuid.UUID) (*telemetry.Reading, error) {
	var dbModel models.ReadingModel
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC, id DESC").
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return toReadingEntity(&dbModel), nil
}

func (r *TelemetryRepository) ListByDeviceSince(ctx context.Context, deviceID uuid.UUID, since time.Time) ([]*telemetry.Reading, error) {
	var dbModels []models.ReadingModel
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ? AND created_at >= ?", deviceID, since).
		Order("created_at ASC, id ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}

	readings := make([]*telemetry.Reading, len(dbModels))
	for i := range dbModels {
		readings[i] = toReadingEntity(&dbModels[i])
	}

	return readings, nil
}

func (r *TelemetryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ReadingModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old readings: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Helper functions to convert between domain entities and database models

func toReadingModel(reading *telemetry.Reading) *models.ReadingModel {
	return &models.ReadingModel{
		ID:        reading.ID,
		DeviceID:  reading.DeviceID,
		Payload:   datatypes.JSON(reading.Payload),
		CreatedAt: reading.CreatedAt,
	}
}

func toReadingEntity(m *models.ReadingModel) *telemetry.Reading {
	return &telemetry.Reading{
		ID:        m.ID,
		DeviceID:  m.DeviceID,
		Payload:   json.RawMessage(m.Payload),
		CreatedAt: m.CreatedAt,
	}
}
