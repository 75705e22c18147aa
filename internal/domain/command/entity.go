package command

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NoCommand is the sentinel command type a poll returns when the device's
// queue is empty.
const NoCommand = "no_command"

// Command is one queued instruction for a device. Commands are delivered in
// creation order; IsPending flips to false exactly once, when a poll claims
// the entry.
type Command struct {
	ID          int64
	DeviceID    uuid.UUID
	CommandType string
	Parameters  json.RawMessage
	IsPending   bool
	CreatedAt   time.Time
}

// LogEntry is the delivery record for a dequeued command. It is written when
// the device receives the command and updated when the device reports the
// outcome. The log is observational only; nothing is ever re-queued from it.
type LogEntry struct {
	ID          int64
	CommandID   int64
	DeviceID    uuid.UUID
	CommandType string
	Parameters  json.RawMessage
	Executed    bool
	ExecutedAt  *time.Time
	Response    *string
	CreatedAt   time.Time
}
