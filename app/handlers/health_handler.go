// Package handlers contains HTTP request handlers for the operational surface
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/utils"
	"gorm.io/gorm"
)

// ServiceName appears in status and health payloads
const ServiceName = "wb-tariffs-keeper"

// SchedulerStatus is the slice of the scheduler the handlers need.
type SchedulerStatus interface {
	IsRunning() bool
	Status() map[string]string
}

// HealthHandler serves health, readiness, liveness and status endpoints.
type HealthHandler struct {
	db        *gorm.DB
	scheduler SchedulerStatus
	version   string
	startedAt time.Time
}

// NewHealthHandler creates the operational endpoint handler.
func NewHealthHandler(db *gorm.DB, scheduler SchedulerStatus, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: scheduler,
		version:   version,
		startedAt: utils.UTCNow(),
	}
}

type healthCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health reports overall service health: database connectivity plus
// scheduler task state. Unhealthy responses carry a 503.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	database := h.checkDatabase()

	schedulerState := "healthy"
	if !h.scheduler.IsRunning() {
		schedulerState = "unhealthy"
	}

	healthy := database.Status == "healthy" && schedulerState == "healthy"
	status := "healthy"
	code := fiber.StatusOK
	if !healthy {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: healthy,
		Message: "Health check",
		Data: fiber.Map{
			"status":    status,
			"timestamp": utils.UTCNowRFC3339(),
			"uptime":    time.Since(h.startedAt).Seconds(),
			"checks": fiber.Map{
				"database": database,
				"scheduler": fiber.Map{
					"status": schedulerState,
					"tasks":  h.scheduler.Status(),
				},
			},
		},
	})
}

// Ready reports whether the service can reach its store.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	if check := h.checkDatabase(); check.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service not ready",
			Error:   dto.ErrorDetail{Code: "NOT_READY", Details: check.Error},
		})
	}

	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is ready",
		Data: fiber.Map{
			"status":    "ready",
			"timestamp": utils.UTCNowRFC3339(),
		},
	})
}

// Live always succeeds while the process is serving requests.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is alive",
		Data: fiber.Map{
			"status":    "alive",
			"timestamp": utils.UTCNowRFC3339(),
		},
	})
}

// Status reports service identity, uptime and scheduler task state.
func (h *HealthHandler) Status(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service status",
		Data: fiber.Map{
			"service":   ServiceName,
			"version":   h.version,
			"uptime":    time.Since(h.startedAt).Seconds(),
			"timestamp": utils.UTCNowRFC3339(),
			"scheduler": h.scheduler.Status(),
		},
	})
}

func (h *HealthHandler) checkDatabase() healthCheck {
	sqlDB, err := h.db.DB()
	if err != nil {
		return healthCheck{Status: "unhealthy", Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		return healthCheck{Status: "unhealthy", Error: err.Error()}
	}

	return healthCheck{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
}
