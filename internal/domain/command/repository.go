package command

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for command queue persistence operations
type Repository interface {
	Enqueue(ctx context.Context, cmd *Command) error

	// DequeueOldestPending atomically selects the device's oldest pending
	// command, marks it delivered and writes its delivery log entry. No two
	// callers can receive the same command. Returns ErrNoPendingCommand when
	// the queue is empty.
	DequeueOldestPending(ctx context.Context, deviceID uuid.UUID) (*Command, error)

	CountPending(ctx context.Context, deviceID uuid.UUID) (int64, error)

	// RecordExecution marks the delivery log entry for the given queue entry
	// as executed, storing the device's response. Returns ErrCommandNotFound
	// when no delivered command with that id exists for the device.
	RecordExecution(ctx context.Context, deviceID uuid.UUID, commandID int64, response *string, executedAt time.Time) error
}
