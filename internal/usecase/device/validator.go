package device

import (
	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"

	"github.com/google/uuid"
)

// ensureOwned verifies the device belongs to the account. Reads by
// non-owners report not-found so device existence is not leaked across
// accounts.
func ensureOwned(d *domainDevice.Device, accountID uuid.UUID) error {
	if d.OwnerAccountID == nil || *d.OwnerAccountID != accountID {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}
