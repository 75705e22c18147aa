package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence operations
type Repository interface {
	// GetOrCreate looks up a device by API key, creating it when absent.
	// A created device starts online with last seen set to seenAt. When the
	// device already exists with an unset type and deviceType carries a real
	// value, the type and derived name are backfilled; a type that is already
	// set is never overwritten. The returned flag is true when a new row was
	// created. Concurrent calls for the same key converge on a single row.
	GetOrCreate(ctx context.Context, apiKey, deviceType string, seenAt time.Time) (*Device, bool, error)

	GetByID(ctx context.Context, deviceID uuid.UUID) (*Device, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Device, error)

	// TouchLiveness marks the device online and records seenAt as its last
	// check-in.
	TouchLiveness(ctx context.Context, deviceID uuid.UUID, seenAt time.Time) error

	// Claim assigns the device to accountID if and only if it has no owner.
	// Returns ErrAlreadyClaimed when another account holds it and
	// ErrDeviceNotFound when the id is unknown.
	Claim(ctx context.Context, deviceID, accountID uuid.UUID) error

	// Release clears ownership if accountID currently owns the device.
	// Returns ErrNotOwner when the device exists but belongs to someone else
	// (or to nobody) and ErrDeviceNotFound when the id is unknown.
	Release(ctx context.Context, deviceID, accountID uuid.UUID) error

	ListByOwner(ctx context.Context, accountID uuid.UUID) ([]*Device, error)
}
