package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reading is one sensor report from a device. The payload is an opaque JSON
// object; devices of different types report different keys (e.g. power,
// water_level) and the platform stores them as-is.
type Reading struct {
	ID        int64
	DeviceID  uuid.UUID
	Payload   json.RawMessage
	CreatedAt time.Time
}
