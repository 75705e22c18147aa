package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for telemetry persistence operations
type Repository interface {
	Insert(ctx context.Context, reading *Reading) error

	// LatestByDevice returns the newest reading for the device, or nil when
	// the device has never reported.
	LatestByDevice(ctx context.Context, deviceID uuid.UUID) (*Reading, error)

	// ListByDeviceSince returns readings recorded after since, oldest first.
	ListByDeviceSince(ctx context.Context, deviceID uuid.UUID, since time.Time) ([]*Reading, error)

	// DeleteOlderThan removes readings recorded before cutoff and reports how
	// many rows were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
