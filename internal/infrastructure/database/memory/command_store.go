package memory

import (
	"context"
	"sync"
	"time"

	"github.com/VEB4697/smart-iot/internal/domain/command"

	"github.com/google/uuid"
)

// CommandStore is an in-memory command queue repository for tests and
// single-node development runs. Selection and delivery marking happen under
// one lock, so no two concurrent polls can claim the same entry.
type CommandStore struct {
	mu        sync.Mutex
	nextID    int64
	nextLogID int64
	commands  []*command.Command
	logs      map[int64]*command.LogEntry
}

// NewCommandStore creates an empty in-memory command queue repository.
func NewCommandStore() command.Repository {
	return &CommandStore{
		logs: make(map[int64]*command.LogEntry),
	}
}

func (s *CommandStore) Enqueue(ctx context.Context, cmd *command.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cmd.ID = s.nextID
	cmd.IsPending = true
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now()
	}
	s.commands = append(s.commands, copyCommand(cmd))
	return nil
}

func (s *CommandStore) DequeueOldestPending(ctx context.Context, deviceID uuid.UUID) (*command.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *command.Command
	for _, c := range s.commands {
		if c.DeviceID != deviceID || !c.IsPending {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) ||
			(c.CreatedAt.Equal(oldest.CreatedAt) && c.ID < oldest.ID) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, command.ErrNoPendingCommand
	}

	oldest.IsPending = false

	s.nextLogID++
	s.logs[oldest.ID] = &command.LogEntry{
		ID:          s.nextLogID,
		CommandID:   oldest.ID,
		DeviceID:    oldest.DeviceID,
		CommandType: oldest.CommandType,
		Parameters:  append([]byte(nil), oldest.Parameters...),
		Executed:    false,
		CreatedAt:   time.Now(),
	}

	return copyCommand(oldest), nil
}

func (s *CommandStore) CountPending(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, c := range s.commands {
		if c.DeviceID == deviceID && c.IsPending {
			count++
		}
	}
	return count, nil
}

func (s *CommandStore) RecordExecution(ctx context.Context, deviceID uuid.UUID, commandID int64, response *string, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.logs[commandID]
	if !ok || entry.DeviceID != deviceID {
		return command.ErrCommandNotFound
	}

	at := executedAt
	entry.Executed = true
	entry.ExecutedAt = &at
	if response != nil {
		resp := *response
		entry.Response = &resp
	}
	return nil
}

func copyCommand(c *command.Command) *command.Command {
	out := *c
	if c.Parameters != nil {
		out.Parameters = append([]byte(nil), c.Parameters...)
	}
	return &out
}
