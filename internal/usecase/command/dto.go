package command

import "encoding/json"

// EnqueueRequest is the body an owner posts to queue a command for one of
// their devices.
type EnqueueRequest struct {
	CommandType string          `json:"command" validate:"required,command_type"`
	Parameters  json.RawMessage `json:"parameters" validate:"omitempty"`
}

// EnqueueResponse reports the queued entry back to the owner.
type EnqueueResponse struct {
	CommandID  int64  `json:"command_id"`
	DeviceName string `json:"device_name"`
}

// DeliveredCommand is what a successful poll hands to the device. Parameters
// are always a decoded object, never an encoded string.
type DeliveredCommand struct {
	CommandID   int64
	CommandType string
	Parameters  map[string]interface{}
}

// ReportRequest is the body a device posts after executing a delivered
// command.
type ReportRequest struct {
	DeviceAPIKey string  `json:"device_api_key" validate:"required,max=36"`
	CommandID    int64   `json:"command_id" validate:"required,min=1"`
	Response     *string `json:"response" validate:"omitempty,max=1000"`
}
