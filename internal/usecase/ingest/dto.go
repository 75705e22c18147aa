package ingest

import "encoding/json"

// IngestRequest is the body a device posts to report sensor readings.
// SensorData is either a JSON object or a JSON string containing an encoded
// object; some firmware builds double-encode their payloads.
type IngestRequest struct {
	DeviceAPIKey string          `json:"device_api_key" validate:"required,max=36"`
	DeviceType   string          `json:"device_type" validate:"required,max=50"`
	SensorData   json.RawMessage `json:"sensor_data" validate:"required"`
}
