package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReadingModel represents the database model for telemetry readings.
type ReadingModel struct {
	ID        int64          `gorm:"primary_key;autoIncrement"`
	DeviceID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_readings_device_created,priority:1"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null;index:idx_readings_device_created,priority:2"`
}

func (ReadingModel) TableName() string {
	return "telemetry_readings"
}
