package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CommandModel represents the database model for queued device commands.
type CommandModel struct {
	ID          int64          `gorm:"primary_key;autoIncrement"`
	DeviceID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_commands_pending,priority:1"`
	CommandType string         `gorm:"type:varchar(50);not null"`
	Parameters  datatypes.JSON `gorm:"type:jsonb"`
	IsPending   bool           `gorm:"not null;default:true;index:idx_commands_pending,priority:2"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_commands_pending,priority:3"`
}

func (CommandModel) TableName() string {
	return "command_queue_entries"
}

// CommandLogModel represents the database model for command delivery records.
type CommandLogModel struct {
	ID          int64          `gorm:"primary_key;autoIncrement"`
	CommandID   int64          `gorm:"not null;uniqueIndex"`
	DeviceID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	CommandType string         `gorm:"type:varchar(50);not null"`
	Parameters  datatypes.JSON `gorm:"type:jsonb"`
	Executed    bool           `gorm:"not null;default:false"`
	ExecutedAt  *time.Time     `gorm:"type:timestamptz"`
	Response    *string        `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"not null"`
}

func (CommandLogModel) TableName() string {
	return "command_log_entries"
}
