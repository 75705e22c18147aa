package onboarding

import (
	"context"
	"sync"
	"testing"
	"time"

	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/memory"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testThreshold = 5 * time.Minute

func newTestService(t *testing.T) (*Service, domainDevice.Repository) {
	t.Helper()
	deviceRepo := memory.NewDeviceStore()
	return NewService(deviceRepo, testThreshold), deviceRepo
}

func seedDevice(t *testing.T, repo domainDevice.Repository, apiKey string, lastSeen time.Time) *domainDevice.Device {
	t.Helper()
	device, _, err := repo.GetOrCreate(context.Background(), apiKey, "power_monitor", lastSeen)
	require.NoError(t, err)
	return device
}

func TestCheckOutcomes(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	account := uuid.New()

	live := seedDevice(t, repo, "live-key", time.Now())
	stale := seedDevice(t, repo, "stale-key", time.Now().Add(-time.Hour))
	claimed := seedDevice(t, repo, "claimed-key", time.Now())
	require.NoError(t, repo.Claim(ctx, claimed.ID, account))

	_, err := svc.Check(ctx, "missing-key")
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)

	_, err = svc.Check(ctx, stale.APIKey)
	assert.ErrorIs(t, err, domainDevice.ErrNotRecentlyOnline)

	_, err = svc.Check(ctx, claimed.APIKey)
	assert.ErrorIs(t, err, domainDevice.ErrAlreadyClaimed)

	resp, err := svc.Check(ctx, live.APIKey)
	require.NoError(t, err)
	assert.Equal(t, live.Name, resp.DeviceName)
	assert.Equal(t, "power_monitor", resp.DeviceType)
}

func TestCheckClaimedWinsOverStale(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	device := seedDevice(t, repo, "key-1", time.Now().Add(-time.Hour))
	require.NoError(t, repo.Claim(ctx, device.ID, uuid.New()))

	_, err := svc.Check(ctx, device.APIKey)
	assert.ErrorIs(t, err, domainDevice.ErrAlreadyClaimed)
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	account := uuid.New()

	device := seedDevice(t, repo, "key-1", time.Now())

	resp, err := svc.Claim(ctx, account, &ClaimRequest{DeviceAPIKey: device.APIKey})
	require.NoError(t, err)
	assert.Equal(t, device.ID, resp.DeviceID)
	assert.Equal(t, device.Name, resp.DeviceName)

	got, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRegistered)
	require.NotNil(t, got.OwnerAccountID)
	assert.Equal(t, account, *got.OwnerAccountID)

	// Claiming an owned device conflicts, even for the same account.
	_, err = svc.Claim(ctx, account, &ClaimRequest{DeviceAPIKey: device.APIKey})
	assert.ErrorIs(t, err, domainDevice.ErrAlreadyClaimed)
}

func TestClaimRejectsStaleAndMissing(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	account := uuid.New()

	stale := seedDevice(t, repo, "stale-key", time.Now().Add(-time.Hour))

	_, err := svc.Claim(ctx, account, &ClaimRequest{DeviceAPIKey: stale.APIKey})
	assert.ErrorIs(t, err, domainDevice.ErrNotRecentlyOnline)

	_, err = svc.Claim(ctx, account, &ClaimRequest{DeviceAPIKey: "missing-key"})
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)

	_, err = svc.Claim(ctx, account, &ClaimRequest{})
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestClaimConcurrentExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	device := seedDevice(t, repo, "key-1", time.Now())

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan uuid.UUID, claimers)
	losses := make(chan error, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			account := uuid.New()
			if _, err := svc.Claim(ctx, account, &ClaimRequest{DeviceAPIKey: "key-1"}); err != nil {
				losses <- err
			} else {
				wins <- account
			}
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	var winners []uuid.UUID
	for account := range wins {
		winners = append(winners, account)
	}
	require.Len(t, winners, 1)

	for err := range losses {
		assert.ErrorIs(t, err, domainDevice.ErrAlreadyClaimed)
	}

	got, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRegistered)
	require.NotNil(t, got.OwnerAccountID)
	assert.Equal(t, winners[0], *got.OwnerAccountID)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	owner := uuid.New()
	stranger := uuid.New()

	device := seedDevice(t, repo, "key-1", time.Now())
	require.NoError(t, repo.Claim(ctx, device.ID, owner))

	_, err := svc.Release(ctx, stranger, device.ID)
	assert.ErrorIs(t, err, domainDevice.ErrNotOwner)

	resp, err := svc.Release(ctx, owner, device.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, resp.DeviceID)

	got, err := repo.GetByID(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRegistered)
	assert.Nil(t, got.OwnerAccountID)

	// A released device is claimable again while it is still live.
	_, err = svc.Claim(ctx, stranger, &ClaimRequest{DeviceAPIKey: device.APIKey})
	assert.NoError(t, err)

	_, err = svc.Release(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, domainDevice.ErrDeviceNotFound)
}
