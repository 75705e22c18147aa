package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/VEB4697/smart-iot/internal/domain/telemetry"

	"github.com/google/uuid"
)

// TelemetryStore is an in-memory telemetry repository for tests and
// single-node development runs.
type TelemetryStore struct {
	mu       sync.RWMutex
	nextID   int64
	readings []*telemetry.Reading
}

// NewTelemetryStore creates an empty in-memory telemetry repository.
func NewTelemetryStore() telemetry.Repository {
	return &TelemetryStore{}
}

func (s *TelemetryStore) Insert(ctx context.Context, reading *telemetry.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	reading.ID = s.nextID
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now()
	}
	s.readings = append(s.readings, copyReading(reading))
	return nil
}

func (s *TelemetryStore) LatestByDevice(ctx context.Context, deviceID uuid.UUID) (*telemetry.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *telemetry.Reading
	for _, r := range s.readings {
		if r.DeviceID != deviceID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyReading(latest), nil
}

func (s *TelemetryStore) ListByDeviceSince(ctx context.Context, deviceID uuid.UUID, since time.Time) ([]*telemetry.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*telemetry.Reading
	for _, r := range s.readings {
		if r.DeviceID == deviceID && !r.CreatedAt.Before(since) {
			out = append(out, copyReading(r))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (s *TelemetryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*telemetry.Reading
	var removed int64
	for _, r := range s.readings {
		if r.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.readings = kept
	return removed, nil
}

func copyReading(r *telemetry.Reading) *telemetry.Reading {
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	return &out
}
