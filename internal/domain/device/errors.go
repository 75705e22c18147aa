package device

import "errors"

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrAlreadyClaimed    = errors.New("device is already registered to an account")
	ErrNotOwner          = errors.New("device is not owned by this account")
	ErrNotRecentlyOnline = errors.New("device has not been online recently")
)
