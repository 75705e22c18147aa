package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Load reads the process environment through a shared viper instance, so
// these tests must not run in parallel.

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 300, cfg.Liveness.ThresholdSeconds)
	assert.Equal(t, 5*time.Minute, cfg.Liveness.Threshold())
	assert.Zero(t, cfg.Commands.MaxPending)
	assert.Zero(t, cfg.Retention.Days)
	assert.Equal(t, "smart-iot-ingest", cfg.MQTT.ClientID)
	assert.Equal(t, "devices/+/data", cfg.MQTT.Topic)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, float64(50), cfg.RateLimit.GeneralRPS)
	assert.Equal(t, 100, cfg.RateLimit.GeneralBurst)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("LIVENESS_THRESHOLD_SECONDS", "60")
	t.Setenv("COMMAND_MAX_PENDING", "25")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("MQTT_BROKER", "tcp://broker.local:1883")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Liveness.Threshold())
	assert.Equal(t, 25, cfg.Commands.MaxPending)
	assert.Equal(t, 30, cfg.Retention.Days)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "iot",
		Password: "secret",
		DBName:   "smart_iot",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=iot password=secret dbname=smart_iot sslmode=disable",
		db.DSN())
}
