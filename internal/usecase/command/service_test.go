package command

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	domainCommand "github.com/VEB4697/smart-iot/internal/domain/command"
	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/memory"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, maxPending int) (*Service, domainDevice.Repository, domainCommand.Repository) {
	t.Helper()
	deviceRepo := memory.NewDeviceStore()
	commandRepo := memory.NewCommandStore()
	return NewService(deviceRepo, commandRepo, maxPending), deviceRepo, commandRepo
}

func seedClaimedDevice(t *testing.T, deviceRepo domainDevice.Repository, apiKey string, accountID uuid.UUID) *domainDevice.Device {
	t.Helper()
	ctx := context.Background()

	device, _, err := deviceRepo.GetOrCreate(ctx, apiKey, "relay", time.Now())
	require.NoError(t, err)
	require.NoError(t, deviceRepo.Claim(ctx, device.ID, accountID))

	device, err = deviceRepo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	return device
}

func TestEnqueueRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	stranger := uuid.New()

	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	_, err := svc.Enqueue(ctx, stranger, device.ID, &EnqueueRequest{CommandType: "restart"})
	assert.ErrorIs(t, err, domainDevice.ErrNotOwner)

	unclaimed, _, err := deviceRepo.GetOrCreate(ctx, "ffff-0000", "relay", time.Now())
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, owner, unclaimed.ID, &EnqueueRequest{CommandType: "restart"})
	assert.ErrorIs(t, err, domainDevice.ErrNotOwner)

	_, err = svc.Enqueue(ctx, owner, uuid.New(), &EnqueueRequest{CommandType: "restart"})
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)

	resp, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)
	assert.Positive(t, resp.CommandID)
	assert.Equal(t, device.Name, resp.DeviceName)
}

func TestEnqueueValidatesCommandType(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	invalid := []string{
		"",
		"RESTART",
		"9start",
		"has space",
		"dash-case",
		"x" + strings.Repeat("y", 50),
	}
	for _, commandType := range invalid {
		_, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: commandType})
		var appErr *appErrors.AppError
		require.ErrorAs(t, err, &appErr, "command type %q should be rejected", commandType)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	}

	valid := []string{"restart", "set_level_2", "a"}
	for _, commandType := range valid {
		_, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: commandType})
		assert.NoError(t, err, "command type %q should be accepted", commandType)
	}
}

func TestEnqueueParameters(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	_, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{
		CommandType: "set_level",
		Parameters:  json.RawMessage(`{"level": 3}`),
	})
	assert.NoError(t, err)

	_, err = svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{
		CommandType: "set_level",
		Parameters:  json.RawMessage(`null`),
	})
	assert.NoError(t, err)

	_, err = svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{
		CommandType: "set_level",
		Parameters:  json.RawMessage(`[1, 2]`),
	})
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_PARAMETERS", appErr.Code)
}

func TestEnqueueQueueDepthCap(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 2)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	_, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)

	_, err = svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	assert.ErrorIs(t, err, domainCommand.ErrQueueFull)

	// Delivering one frees a slot.
	delivered, err := svc.Poll(ctx, device.APIKey)
	require.NoError(t, err)
	require.NotNil(t, delivered)

	_, err = svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	assert.NoError(t, err)
}

func TestPollUnknownDeviceSelfRegisters(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)

	delivered, err := svc.Poll(ctx, "new-key-1")
	require.NoError(t, err)
	assert.Nil(t, delivered)

	device, err := deviceRepo.GetByAPIKey(ctx, "new-key-1")
	require.NoError(t, err)
	assert.Equal(t, domainDevice.TypeUnset, device.DeviceType)
	assert.Equal(t, "Unknown Device (new-)", device.Name)
	assert.True(t, device.IsOnline)
}

func TestPollDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	first, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)
	second, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "set_level"})
	require.NoError(t, err)

	delivered, err := svc.Poll(ctx, device.APIKey)
	require.NoError(t, err)
	require.NotNil(t, delivered)
	assert.Equal(t, first.CommandID, delivered.CommandID)
	assert.Equal(t, "restart", delivered.CommandType)

	delivered, err = svc.Poll(ctx, device.APIKey)
	require.NoError(t, err)
	require.NotNil(t, delivered)
	assert.Equal(t, second.CommandID, delivered.CommandID)

	delivered, err = svc.Poll(ctx, device.APIKey)
	require.NoError(t, err)
	assert.Nil(t, delivered)
}

func TestPollDecodesParameters(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, commandRepo := newTestService(t, 0)

	device, _, err := deviceRepo.GetOrCreate(ctx, "abcd-1234", "relay", time.Now())
	require.NoError(t, err)

	tests := map[string]struct {
		stored json.RawMessage
		want   map[string]interface{}
	}{
		"object":         {json.RawMessage(`{"level": 3}`), map[string]interface{}{"level": float64(3)}},
		"encoded string": {json.RawMessage(`"{\"level\": 7}"`), map[string]interface{}{"level": float64(7)}},
		"empty":          {nil, map[string]interface{}{}},
		"null":           {json.RawMessage(`null`), map[string]interface{}{}},
		"garbage string": {json.RawMessage(`"{"`), map[string]interface{}{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, commandRepo.Enqueue(ctx, &domainCommand.Command{
				DeviceID:    device.ID,
				CommandType: "set_level",
				Parameters:  tt.stored,
			}))

			delivered, err := svc.Poll(ctx, device.APIKey)
			require.NoError(t, err)
			require.NotNil(t, delivered)
			assert.Equal(t, tt.want, delivered.Parameters)
		})
	}
}

func TestPollConcurrentSingleDelivery(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	_, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)

	const pollers = 10
	var wg sync.WaitGroup
	results := make(chan *DeliveredCommand, pollers)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			delivered, err := svc.Poll(ctx, device.APIKey)
			if assert.NoError(t, err) && delivered != nil {
				results <- delivered
			}
		}()
	}
	wg.Wait()
	close(results)

	var count int
	for range results {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestReportMarksExecution(t *testing.T) {
	ctx := context.Background()
	svc, deviceRepo, _ := newTestService(t, 0)
	owner := uuid.New()
	device := seedClaimedDevice(t, deviceRepo, "abcd-1234", owner)

	queued, err := svc.Enqueue(ctx, owner, device.ID, &EnqueueRequest{CommandType: "restart"})
	require.NoError(t, err)

	// Execution on an undelivered command cannot be recorded.
	err = svc.Report(ctx, &ReportRequest{DeviceAPIKey: device.APIKey, CommandID: queued.CommandID})
	assert.ErrorIs(t, err, domainCommand.ErrCommandNotFound)

	delivered, err := svc.Poll(ctx, device.APIKey)
	require.NoError(t, err)
	require.NotNil(t, delivered)

	before, err := deviceRepo.GetByID(ctx, device.ID)
	require.NoError(t, err)

	response := "rebooted"
	require.NoError(t, svc.Report(ctx, &ReportRequest{
		DeviceAPIKey: device.APIKey,
		CommandID:    delivered.CommandID,
		Response:     &response,
	}))

	// Reporting counts as contact.
	after, err := deviceRepo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastSeen)
	assert.False(t, after.LastSeen.Before(*before.LastSeen))

	err = svc.Report(ctx, &ReportRequest{DeviceAPIKey: "unknown-key", CommandID: delivered.CommandID})
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)

	err = svc.Report(ctx, &ReportRequest{DeviceAPIKey: device.APIKey, CommandID: 9999})
	assert.ErrorIs(t, err, domainCommand.ErrCommandNotFound)
}

func TestReportValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, 0)

	tests := map[string]*ReportRequest{
		"missing api key":    {CommandID: 1},
		"missing command id": {DeviceAPIKey: "abcd"},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			err := svc.Report(ctx, req)
			var appErr *appErrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}
