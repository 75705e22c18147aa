package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VEB4697/smart-iot/internal/config"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/postgres"
	"github.com/VEB4697/smart-iot/internal/ingestion"
	"github.com/VEB4697/smart-iot/internal/logger"
	"github.com/VEB4697/smart-iot/internal/routes"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"
	pkgmqtt "github.com/VEB4697/smart-iot/pkg/mqtt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("environment", env),
	)

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection: %v", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	router := routes.SetupRoutes(cfg, db)

	telemetryRepository := postgres.NewTelemetryRepository(db)

	if cfg.Retention.Days > 0 {
		cronRunner := cron.New()
		_, err := cronRunner.AddFunc("0 3 * * *", func() {
			cutoff := time.Now().AddDate(0, 0, -cfg.Retention.Days)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			removed, err := telemetryRepository.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				logger.Error("Telemetry retention sweep failed", zap.Error(err))
				return
			}
			logger.Info("Telemetry retention sweep completed",
				zap.Int64("rows_removed", removed),
				zap.Time("cutoff", cutoff),
			)
		})
		if err != nil {
			logger.Fatal("Failed to schedule retention job", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()

		logger.Info("Telemetry retention enabled", zap.Int("days", cfg.Retention.Days))
	}

	if cfg.MQTT.Broker != "" {
		deviceRepository := postgres.NewDeviceRepository(db)
		ingestService := ingest.NewService(deviceRepository, telemetryRepository)
		dispatcher := ingestion.NewDispatcher(ingestService, 0, 0)

		bridge, err := ingestion.NewBridge(&ingestion.BridgeConfig{
			ClientConfig: &pkgmqtt.Config{
				Broker:   cfg.MQTT.Broker,
				ClientID: cfg.MQTT.ClientID,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
			},
			DataTopic: cfg.MQTT.Topic,
			QoS:       1,
		}, dispatcher)
		if err != nil {
			logger.Fatal("Failed to build MQTT bridge", zap.Error(err))
		}
		if err := bridge.Start(); err != nil {
			logger.Fatal("Failed to start MQTT bridge", zap.Error(err))
		}
		defer bridge.Stop()
	}

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start goroutine
	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	log.Println("Server exited properly")
}
