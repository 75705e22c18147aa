package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"

	"github.com/google/uuid"
)

// DeviceStore is an in-memory device repository for tests and single-node
// development runs. The mutex gives it the same atomicity the SQL
// implementation gets from conditional updates.
type DeviceStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*domainDevice.Device
	byAPIKey map[string]uuid.UUID
}

// NewDeviceStore creates an empty in-memory device repository.
func NewDeviceStore() domainDevice.Repository {
	return &DeviceStore{
		byID:     make(map[uuid.UUID]*domainDevice.Device),
		byAPIKey: make(map[string]uuid.UUID),
	}
}

func (s *DeviceStore) GetOrCreate(ctx context.Context, apiKey, deviceType string, seenAt time.Time) (*domainDevice.Device, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byAPIKey[apiKey]; ok {
		d := s.byID[id]
		if d.HasUnsetType() && deviceType != "" && deviceType != domainDevice.TypeUnset {
			d.DeviceType = deviceType
			d.Name = domainDevice.DeriveName(deviceType, apiKey)
			d.UpdatedAt = time.Now()
		}
		return copyDevice(d), false, nil
	}

	deviceTypeValue := deviceType
	if deviceTypeValue == "" {
		deviceTypeValue = domainDevice.TypeUnset
	}
	seen := seenAt
	d := &domainDevice.Device{
		ID:         uuid.New(),
		APIKey:     apiKey,
		DeviceType: deviceTypeValue,
		Name:       domainDevice.DeriveName(deviceType, apiKey),
		IsOnline:   true,
		LastSeen:   &seen,
		CreatedAt:  seenAt,
		UpdatedAt:  seenAt,
	}
	s.byID[d.ID] = d
	s.byAPIKey[apiKey] = d.ID

	return copyDevice(d), true, nil
}

func (s *DeviceStore) GetByID(ctx context.Context, deviceID uuid.UUID) (*domainDevice.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[deviceID]
	if !ok {
		return nil, domainDevice.ErrDeviceNotFound
	}
	return copyDevice(d), nil
}

func (s *DeviceStore) GetByAPIKey(ctx context.Context, apiKey string) (*domainDevice.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAPIKey[apiKey]
	if !ok {
		return nil, domainDevice.ErrDeviceNotFound
	}
	return copyDevice(s.byID[id]), nil
}

func (s *DeviceStore) TouchLiveness(ctx context.Context, deviceID uuid.UUID, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}

	seen := seenAt
	d.IsOnline = true
	d.LastSeen = &seen
	d.UpdatedAt = seenAt
	return nil
}

func (s *DeviceStore) Claim(ctx context.Context, deviceID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	if d.OwnerAccountID != nil {
		return domainDevice.ErrAlreadyClaimed
	}

	owner := accountID
	d.OwnerAccountID = &owner
	d.IsRegistered = true
	d.UpdatedAt = time.Now()
	return nil
}

func (s *DeviceStore) Release(ctx context.Context, deviceID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[deviceID]
	if !ok {
		return domainDevice.ErrDeviceNotFound
	}
	if d.OwnerAccountID == nil || *d.OwnerAccountID != accountID {
		return domainDevice.ErrNotOwner
	}

	d.OwnerAccountID = nil
	d.IsRegistered = false
	d.UpdatedAt = time.Now()
	return nil
}

func (s *DeviceStore) ListByOwner(ctx context.Context, accountID uuid.UUID) ([]*domainDevice.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var devices []*domainDevice.Device
	for _, d := range s.byID {
		if d.IsRegistered && d.OwnerAccountID != nil && *d.OwnerAccountID == accountID {
			devices = append(devices, copyDevice(d))
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i].LastSeen, devices[j].LastSeen
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})

	return devices, nil
}

func copyDevice(d *domainDevice.Device) *domainDevice.Device {
	out := *d
	if d.LastSeen != nil {
		seen := *d.LastSeen
		out.LastSeen = &seen
	}
	if d.OwnerAccountID != nil {
		owner := *d.OwnerAccountID
		out.OwnerAccountID = &owner
	}
	return &out
}
