package device

import (
	"encoding/json"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"

	"github.com/google/uuid"
)

// DeviceResponse is the owner-facing view of a device. IsOnline is
// recomputed from LastSeen at response time; the stored flag is only a
// write-side hint and is never returned verbatim.
type DeviceResponse struct {
	ID           uuid.UUID  `json:"id"`
	APIKey       string     `json:"device_api_key"`
	DeviceType   string     `json:"device_type"`
	Name         string     `json:"name"`
	IsRegistered bool       `json:"is_registered"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DeviceWithLatestResponse pairs a device with its newest telemetry payload.
// LatestData is an empty object for devices that have never reported.
type DeviceWithLatestResponse struct {
	Device     DeviceResponse  `json:"device"`
	LatestData json.RawMessage `json:"latest_data"`
}

// ReadingResponse is one telemetry reading in an owner-facing history window.
type ReadingResponse struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ReadingsQuery selects how far back the readings window reaches.
type ReadingsQuery struct {
	Hours int `form:"hours" validate:"omitempty,min=1,max=720"`
}

// ToDeviceResponse converts a domain device to its owner-facing view,
// deriving the online flag from last seen.
func ToDeviceResponse(d *domainDevice.Device, now time.Time, threshold time.Duration) *DeviceResponse {
	return &DeviceResponse{
		ID:           d.ID,
		APIKey:       d.APIKey,
		DeviceType:   d.DeviceType,
		Name:         d.Name,
		IsRegistered: d.IsRegistered,
		IsOnline:     d.IsLive(now, threshold),
		LastSeen:     d.LastSeen,
		CreatedAt:    d.CreatedAt,
	}
}
