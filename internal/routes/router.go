package routes

import (
	"net/http"

	"github.com/VEB4697/smart-iot/internal/config"
	"github.com/VEB4697/smart-iot/internal/delivery/http/handler"
	"github.com/VEB4697/smart-iot/internal/infrastructure/database/postgres"
	"github.com/VEB4697/smart-iot/internal/logger"
	"github.com/VEB4697/smart-iot/internal/middleware"
	"github.com/VEB4697/smart-iot/internal/usecase/command"
	"github.com/VEB4697/smart-iot/internal/usecase/device"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"
	"github.com/VEB4697/smart-iot/internal/usecase/onboarding"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, db *postgres.DB) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Add middleware in order: request ID, logging, security headers, CORS, request size limit, general rate limit
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(10 << 20))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	deviceRepository := postgres.NewDeviceRepository(db)
	telemetryRepository := postgres.NewTelemetryRepository(db)
	commandRepository := postgres.NewCommandRepository(db)

	ingestService := ingest.NewService(deviceRepository, telemetryRepository)
	commandService := command.NewService(deviceRepository, commandRepository, cfg.Commands.MaxPending)
	onboardingService := onboarding.NewService(deviceRepository, cfg.Liveness.Threshold())
	deviceService := device.NewService(deviceRepository, telemetryRepository, cfg.Liveness.Threshold())

	deviceAPIHandler := handler.NewDeviceAPIHandler(ingestService, commandService, onboardingService)
	deviceHandler := handler.NewDeviceHandler(deviceService, onboardingService, commandService)

	v1 := router.Group("/api/v1")
	{
		// Device-facing endpoints authenticate by api key in the payload,
		// not by bearer token.
		deviceAPIHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			deviceHandler.RegisterRoutes(protected)
		}
	}

	logger.Info("All routes initialized")
	return router
}
