// Package router provides HTTP routing and middleware configuration for the operational surface
package router

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/app/handlers"
	"github.com/wbtools/tariffs-keeper/app/middleware"
	"github.com/wbtools/tariffs-keeper/metrics"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app           *fiber.App
	healthHandler *handlers.HealthHandler
	enableMetrics bool
}

// NewFiberRouter creates a new Fiber router for the operational endpoints
func NewFiberRouter(healthHandler *handlers.HealthHandler, enableMetrics bool) Router {
	app := fiber.New(fiber.Config{
		AppName:      handlers.ServiceName,
		ServerHeader: handlers.ServiceName,
		ErrorHandler: errorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:           app,
		healthHandler: healthHandler,
		enableMetrics: enableMetrics,
	}
}

// SetupRoutes configures middleware and the operational endpoints
func (r *FiberRouter) SetupRoutes() {
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(compress.New())
	r.app.Use(logger.New(logger.Config{
		Format: "${time} ${method} ${path} ${status} ${latency}\n",
		Next: func(c fiber.Ctx) bool {
			// Liveness probes are too chatty to log
			return c.Path() == "/live"
		},
	}))

	if r.enableMetrics {
		r.app.Use(middleware.Metrics())
		r.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	r.app.Get("/health", r.healthHandler.Health)
	r.app.Get("/ready", r.healthHandler.Ready)
	r.app.Get("/live", r.healthHandler.Live)
	r.app.Get("/status", r.healthHandler.Status)
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// errorHandler renders unhandled errors in the standard envelope
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "Request failed",
		Error: dto.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Details: err.Error(),
		},
	})
}
