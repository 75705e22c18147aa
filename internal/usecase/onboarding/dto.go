package onboarding

import "github.com/google/uuid"

// CheckResponse describes a device that is available for registration.
type CheckResponse struct {
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
}

// ClaimRequest is the body an owner posts to register a device by its API
// key.
type ClaimRequest struct {
	DeviceAPIKey string `json:"device_api_key" validate:"required,max=36"`
}

// ClaimResponse reports the newly registered device back to the owner.
type ClaimResponse struct {
	DeviceID   uuid.UUID `json:"device_id"`
	DeviceName string    `json:"device_name"`
}

// ReleaseResponse reports the device that was removed from the account.
type ReleaseResponse struct {
	DeviceID   uuid.UUID `json:"device_id"`
	DeviceName string    `json:"device_name"`
}
