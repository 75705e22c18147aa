package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceModel represents the database model for Devices.
type DeviceModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	APIKey         string     `gorm:"type:varchar(36);not null;uniqueIndex"`
	DeviceType     string     `gorm:"type:varchar(50);not null;default:'unset'"`
	Name           string     `gorm:"type:varchar(100);not null"`
	OwnerAccountID *uuid.UUID `gorm:"type:uuid;index"`
	IsRegistered   bool       `gorm:"not null;default:false"`
	IsOnline       bool       `gorm:"not null;default:false"`
	LastSeen       *time.Time `gorm:"type:timestamptz"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

func (DeviceModel) TableName() string {
	return "devices"
}
