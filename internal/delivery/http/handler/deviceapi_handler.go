package handler

import (
	"errors"
	"net/http"

	domainCommand "github.com/VEB4697/smart-iot/internal/domain/command"
	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/usecase/command"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"
	"github.com/VEB4697/smart-iot/internal/usecase/onboarding"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"

	"github.com/gin-gonic/gin"
)

// DeviceAPIHandler serves the endpoints devices themselves call. These
// endpoints authenticate by API key in the request, not by bearer token, and
// their response shapes are part of the firmware contract: flat JSON objects,
// no envelope.
type DeviceAPIHandler struct {
	ingestService     *ingest.Service
	commandService    *command.Service
	onboardingService *onboarding.Service
}

func NewDeviceAPIHandler(ingestService *ingest.Service, commandService *command.Service, onboardingService *onboarding.Service) *DeviceAPIHandler {
	return &DeviceAPIHandler{
		ingestService:     ingestService,
		commandService:    commandService,
		onboardingService: onboardingService,
	}
}

func (h *DeviceAPIHandler) RegisterRoutes(router *gin.RouterGroup) {
	deviceAPI := router.Group("/device")
	{
		deviceAPI.POST("/data", h.ReceiveData)
		deviceAPI.GET("/commands", h.PollCommand)
		deviceAPI.POST("/commands/report", h.ReportExecution)
		deviceAPI.GET("/onboard-check", h.OnboardCheck)
	}
}

func (h *DeviceAPIHandler) ReceiveData(c *gin.Context) {
	var req ingest.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data (device_api_key, device_type, or sensor_data)."})
		return
	}

	if err := h.ingestService.Ingest(c.Request.Context(), &req); err != nil {
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Data received successfully"})
}

func (h *DeviceAPIHandler) PollCommand(c *gin.Context) {
	apiKey := c.Query("device_api_key")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing device_api_key query parameter."})
		return
	}

	delivered, err := h.commandService.Poll(c.Request.Context(), apiKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred."})
		return
	}

	if delivered == nil {
		c.JSON(http.StatusOK, gin.H{"command": domainCommand.NoCommand})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"command":    delivered.CommandType,
		"command_id": delivered.CommandID,
		"parameters": delivered.Parameters,
	})
}

func (h *DeviceAPIHandler) ReportExecution(c *gin.Context) {
	var req command.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data (device_api_key or command_id)."})
		return
	}

	if err := h.commandService.Report(c.Request.Context(), &req); err != nil {
		var appErr *appErrors.AppError
		switch {
		case errors.As(err, &appErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message})
		case errors.Is(err, domainDevice.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid Device API Key. Please check the key on your physical device."})
		case errors.Is(err, domainCommand.ErrCommandNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Command not found."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Execution recorded"})
}

func (h *DeviceAPIHandler) OnboardCheck(c *gin.Context) {
	apiKey := c.Query("device_api_key")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "device_api_key is required."})
		return
	}

	result, err := h.onboardingService.Check(c.Request.Context(), apiKey)
	if err != nil {
		switch {
		case errors.Is(err, domainDevice.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Invalid Device API Key. Please check the key on your physical device."})
		case errors.Is(err, domainDevice.ErrAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "This device is already registered to a user. Please login to manage it."})
		case errors.Is(err, domainDevice.ErrNotRecentlyOnline):
			c.JSON(http.StatusPreconditionFailed, gin.H{"status": "error", "message": "Device not recently online. Please ensure it is powered on and successfully connected to your Wi-Fi network first."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "An unexpected error occurred."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "Device is available for registration!",
		"device_name": result.DeviceName,
		"device_type": result.DeviceType,
	})
}
