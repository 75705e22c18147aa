package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VEB4697/smart-iot/internal/domain/command"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommandRepository implements the command domain Repository interface
type CommandRepository struct {
	db *DB
}

// NewCommandRepository creates a new command repository
func NewCommandRepository(db *DB) command.Repository {
	return &CommandRepository{db: db}
}

func (r *CommandRepository) Enqueue(ctx context.Context, cmd *command.Command) error {
	cmd.IsPending = true
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now()
	}

	dbModel := toCommandModel(cmd)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to enqueue command: %w", err)
	}

	cmd.ID = dbModel.ID
	return nil
}

// DequeueOldestPending selects the device's oldest pending command with a row
// lock, marks it delivered and writes its delivery log entry, all in one
// transaction. SKIP LOCKED keeps concurrent polls from blocking on each
// other: whoever locks the row first gets the command, everyone else sees the
// next one or none.
func (r *CommandRepository) DequeueOldestPending(ctx context.Context, deviceID uuid.UUID) (*command.Command, error) {
	var dbModel models.CommandModel
	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("device_id = ? AND is_pending = ?", deviceID, true).
			Order("created_at ASC, id ASC").
			First(&dbModel).Error
		if err != nil {
			return err
		}

		if err := tx.Model(&models.CommandModel{}).
			Where("id = ?", dbModel.ID).
			Update("is_pending", false).Error; err != nil {
			return err
		}

		return tx.Create(&models.CommandLogModel{
			CommandID:   dbModel.ID,
			DeviceID:    dbModel.DeviceID,
			CommandType: dbModel.CommandType,
			Parameters:  dbModel.Parameters,
			Executed:    false,
			CreatedAt:   time.Now(),
		}).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, command.ErrNoPendingCommand
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue command: %w", err)
	}

	dbModel.IsPending = false
	return toCommandEntity(&dbModel), nil
}

func (r *CommandRepository) CountPending(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.CommandModel{}).
		Where("device_id = ? AND is_pending = ?", deviceID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending commands: %w", err)
	}

	return count, nil
}

func (r *CommandRepository) RecordExecution(ctx context.Context, deviceID uuid.UUID, commandID int64, response *string, executedAt time.Time) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.CommandLogModel{}).
		Where("command_id = ? AND device_id = ?", commandID, deviceID).
		Updates(map[string]interface{}{
			"executed":    true,
			"executed_at": executedAt,
			"response":    response,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to record command execution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return command.ErrCommandNotFound
	}

	return nil
}

// Helper functions to convert between domain entities and database models

func toCommandModel(cmd *command.Command) *models.CommandModel {
	return &models.CommandModel{
		ID:          cmd.ID,
		DeviceID:    cmd.DeviceID,
		CommandType: cmd.CommandType,
		Parameters:  datatypes.JSON(cmd.Parameters),
		IsPending:   cmd.IsPending,
		CreatedAt:   cmd.CreatedAt,
	}
}

func toCommandEntity(m *models.CommandModel) *command.Command {
	return &command.Command{
		ID:          m.ID,
		DeviceID:    m.DeviceID,
		CommandType: m.CommandType,
		Parameters:  json.RawMessage(m.Parameters),
		IsPending:   m.IsPending,
		CreatedAt:   m.CreatedAt,
	}
}
