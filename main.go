// Package main provides the main entry point for the Wildberries box tariffs keeper service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wbtools/tariffs-keeper/app/handlers"
	"github.com/wbtools/tariffs-keeper/app/router"
	"github.com/wbtools/tariffs-keeper/app/scheduler"
	"github.com/wbtools/tariffs-keeper/app/services"
	businessflow "github.com/wbtools/tariffs-keeper/business_flow"
	"github.com/wbtools/tariffs-keeper/config"
	"github.com/wbtools/tariffs-keeper/logger"
	"github.com/wbtools/tariffs-keeper/models"
	"github.com/wbtools/tariffs-keeper/repository"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Application holds all initialized components
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting tariffs keeper service...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers before closing the server
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeApplication wires repositories, flows, the scheduler and the
// HTTP surface together.
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	appLogger := logger.New(cfg.Logging, "tariffs ")

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.AutoMigrate(&models.Tariff{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cache, err := initializeCache(cfg.Cache)
	if err != nil {
		// The service is fully functional without the snapshot cache.
		appLogger.Printf("cache disabled: %v", err)
		cache = nil
	}

	tariffRepo := repository.NewTariffRepository(db)

	limiter := rate.NewLimiter(
		rate.Every(time.Minute/time.Duration(cfg.WBAPI.RateLimit)),
		cfg.WBAPI.RateBurst,
	)
	wbClient := services.NewWildberriesClient(
		cfg.WBAPI.BaseURL,
		cfg.WBAPI.Token,
		cfg.WBAPI.Timeout,
		cfg.WBAPI.MaxRetries,
		cfg.WBAPI.RetryDelay,
		limiter,
		appLogger,
	)

	syncFlow := businessflow.NewTariffSyncFlow(
		wbClient,
		tariffRepo,
		cache,
		appLogger,
		cfg.Scheduler.RetentionDays,
	)

	var workbooks []string
	if cfg.Export.Enabled {
		workbooks = cfg.Export.Workbooks
	}
	exportFlow := businessflow.NewTariffExportFlow(
		tariffRepo,
		cache,
		cfg.Cache.TTL,
		cfg.Export.OutputDir,
		workbooks,
		appLogger,
	)

	sched := scheduler.NewTariffScheduler(
		syncFlow,
		exportFlow,
		cfg.Scheduler.SyncInterval,
		cfg.Scheduler.ExportInterval,
		appLogger,
	)
	stopScheduler := sched.Start(context.Background())

	healthHandler := handlers.NewHealthHandler(db, sched, Version)
	r := router.NewFiberRouter(healthHandler, cfg.Server.EnableMetrics)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		stopFuncs: []func(){stopScheduler},
	}, nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, fmt.Errorf("cache not enabled")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established")
	return rc, nil
}
