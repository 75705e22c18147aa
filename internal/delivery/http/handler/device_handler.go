package handler

import (
	"errors"
	"fmt"
	"net/http"

	domainCommand "github.com/VEB4697/smart-iot/internal/domain/command"
	domainDevice "github.com/VEB4697/smart-iot/internal/domain/device"
	"github.com/VEB4697/smart-iot/internal/usecase/command"
	"github.com/VEB4697/smart-iot/internal/usecase/device"
	"github.com/VEB4697/smart-iot/internal/usecase/onboarding"
	appErrors "github.com/VEB4697/smart-iot/pkg/errors"
	"github.com/VEB4697/smart-iot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeviceHandler serves the owner-facing device endpoints. All routes require
// an authenticated account; the account id comes from the auth middleware.
type DeviceHandler struct {
	deviceService     *device.Service
	onboardingService *onboarding.Service
	commandService    *command.Service
}

func NewDeviceHandler(deviceService *device.Service, onboardingService *onboarding.Service, commandService *command.Service) *DeviceHandler {
	return &DeviceHandler{
		deviceService:     deviceService,
		onboardingService: onboardingService,
		commandService:    commandService,
	}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:id", h.GetDevice)
		devices.GET("/:id/readings", h.ListReadings)
		devices.POST("/claim", h.ClaimDevice)
		devices.POST("/:id/release", h.ReleaseDevice)
		devices.POST("/:id/commands", h.EnqueueCommand)
	}
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	devices, err := h.deviceService.ListDevices(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	result, err := h.deviceService.GetDevice(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", result)
}

func (h *DeviceHandler) ListReadings(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var q device.ReadingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	readings, err := h.deviceService.ListReadings(c.Request.Context(), accountID, deviceID, &q)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Readings retrieved successfully", readings)
}

func (h *DeviceHandler) ClaimDevice(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req onboarding.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Device API Key is required.")
		return
	}

	result, err := h.onboardingService.Claim(c.Request.Context(), accountID, &req)
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Invalid Device API Key. Please check the key on your physical device.")
			return
		}
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("Device %q successfully added to your account!", result.DeviceName)
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

func (h *DeviceHandler) ReleaseDevice(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	result, err := h.onboardingService.Release(c.Request.Context(), accountID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("Device %q has been removed from your account.", result.DeviceName)
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

func (h *DeviceHandler) EnqueueCommand(c *gin.Context) {
	accountID, ok := accountIDFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	var req command.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.commandService.Enqueue(c.Request.Context(), accountID, deviceID, &req)
	if err != nil {
		// Queueing a command on someone else's device is forbidden, unlike
		// release where the same ownership mismatch reads as a conflict.
		if errors.Is(err, domainDevice.ErrNotOwner) {
			utils.ErrorResponse(c, http.StatusForbidden, "You do not own this device")
			return
		}
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("Command %q queued for %s.", req.CommandType, result.DeviceName)
	utils.SuccessResponse(c, http.StatusCreated, message, result)
}

func accountIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("accountID")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// respondError maps domain errors onto the owner-facing status codes.
func respondError(c *gin.Context, err error) {
	var appErr *appErrors.AppError
	switch {
	case errors.As(err, &appErr):
		utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
	case errors.Is(err, domainDevice.ErrDeviceNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Device not found")
	case errors.Is(err, domainDevice.ErrAlreadyClaimed):
		utils.ErrorResponse(c, http.StatusConflict, "This device is already registered to a user.")
	case errors.Is(err, domainDevice.ErrNotRecentlyOnline):
		utils.ErrorResponse(c, http.StatusPreconditionFailed, "Device not online or responsive. Please ensure it is powered on and connected to Wi-Fi.")
	case errors.Is(err, domainDevice.ErrNotOwner):
		utils.ErrorResponse(c, http.StatusConflict, "Device is not registered to your account")
	case errors.Is(err, domainCommand.ErrQueueFull):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many pending commands for this device")
	case errors.Is(err, domainCommand.ErrCommandNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Command not found")
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
