package device

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// TypeUnset marks a device that has connected but never reported its type.
// The first data push carrying a real type backfills it.
const TypeUnset = "unset"

// DefaultLivenessThreshold is how recently a device must have checked in to
// count as live.
const DefaultLivenessThreshold = 300 * time.Second

// Device represents a physical IoT device known to the platform. A row is
// created the first time a device checks in with its API key; ownership is
// established later when a user claims it.
type Device struct {
	ID             uuid.UUID
	APIKey         string
	DeviceType     string
	Name           string
	OwnerAccountID *uuid.UUID
	IsRegistered   bool
	IsOnline       bool
	LastSeen       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLive reports whether the device checked in strictly less than threshold
// ago. A device that has never checked in is not live.
func (d *Device) IsLive(now time.Time, threshold time.Duration) bool {
	return IsLive(d.LastSeen, now, threshold)
}

// IsLive is the single liveness rule used everywhere a device's online state
// is derived. The comparison is strict: a check-in exactly threshold ago is
// already considered stale.
func IsLive(lastSeen *time.Time, now time.Time, threshold time.Duration) bool {
	if lastSeen == nil {
		return false
	}
	return now.Sub(*lastSeen) < threshold
}

// HasUnsetType reports whether the device's type is still the placeholder.
func (d *Device) HasUnsetType() bool {
	return d.DeviceType == "" || d.DeviceType == TypeUnset
}

// DeriveName builds the default display name for a device from its reported
// type and the first characters of its API key, e.g.
// "Power Monitor Device (ab12)". An unset type yields "Unknown Device (ab12)".
func DeriveName(deviceType, apiKey string) string {
	prefix := apiKey
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	if deviceType == "" || deviceType == TypeUnset {
		return fmt.Sprintf("Unknown Device (%s)", prefix)
	}
	return fmt.Sprintf("%s Device (%s)", titleWords(strings.ReplaceAll(deviceType, "_", " ")), prefix)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
