// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wbtools/tariffs-keeper/utils"
)

// ProductionConfig holds all configuration for the tariff keeper service
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database" validate:"required"`
	Server    ServerConfig    `json:"server" validate:"required"`
	WBAPI     WBAPIConfig     `json:"wb_api" validate:"required"`
	Scheduler SchedulerConfig `json:"scheduler" validate:"required"`
	Export    ExportConfig    `json:"export"`
	Cache     CacheConfig     `json:"cache"`
	Logging   LoggingConfig   `json:"logging"`
}

type DatabaseConfig struct {
	Host            string        `json:"host" validate:"required"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	Name            string        `json:"name" validate:"required"`
	User            string        `json:"user" validate:"required"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `json:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host" validate:"required"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	EnableMetrics   bool          `json:"enable_metrics"`
}

type WBAPIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Token is optional; when set it is sent as a bearer header.
	Token      string        `json:"token"`
	Timeout    time.Duration `json:"timeout" validate:"min=1s"`
	MaxRetries int           `json:"max_retries" validate:"min=1"`
	RetryDelay time.Duration `json:"retry_delay" validate:"min=1ms"`
	RateLimit  int           `json:"rate_limit" validate:"min=1"` // requests per minute
	RateBurst  int           `json:"rate_burst" validate:"min=1"`
}

type SchedulerConfig struct {
	SyncInterval   time.Duration `json:"sync_interval" validate:"min=1m"`
	ExportInterval time.Duration `json:"export_interval" validate:"min=1m"`
	RetentionDays  int           `json:"retention_days" validate:"min=0"`
}

type ExportConfig struct {
	Enabled   bool     `json:"enabled"`
	OutputDir string   `json:"output_dir" validate:"required_if=Enabled true"`
	Workbooks []string `json:"workbooks"`
}

type CacheConfig struct {
	Enabled  bool          `json:"enabled"`
	Provider string        `json:"provider"`
	RedisURL string        `json:"redis_url" validate:"required_if=Enabled true"`
	TTL      time.Duration `json:"ttl"`
}

type LoggingConfig struct {
	FilePath   string `json:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// LoadProductionConfig reads configuration from the environment, with an
// optional .env file supplying defaults for unset variables.
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "tariffs"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 3000),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
		},
		WBAPI: WBAPIConfig{
			BaseURL:    getEnvString("WB_API_URL", "https://common-api.wildberries.ru"),
			Token:      getEnvString("WB_API_TOKEN", ""),
			Timeout:    getEnvDuration("WB_API_TIMEOUT", utils.DefaultFetchTimeout),
			MaxRetries: getEnvInt("WB_API_MAX_RETRIES", utils.DefaultMaxRetries),
			RetryDelay: getEnvDuration("WB_API_RETRY_DELAY", utils.DefaultRetryDelay),
			RateLimit:  getEnvInt("WB_API_RATE_LIMIT", 50),
			RateBurst:  getEnvInt("WB_API_RATE_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			SyncInterval:   getEnvDuration("SCHEDULER_SYNC_INTERVAL", utils.DefaultSyncInterval),
			ExportInterval: getEnvDuration("SCHEDULER_EXPORT_INTERVAL", utils.DefaultExportInterval),
			RetentionDays:  getEnvInt("SCHEDULER_RETENTION_DAYS", utils.DefaultRetentionDays),
		},
		Export: ExportConfig{
			Enabled:   getEnvBool("EXPORT_ENABLED", true),
			OutputDir: getEnvString("EXPORT_OUTPUT_DIR", "data/sheets"),
			Workbooks: getEnvStringSlice("EXPORT_WORKBOOKS", []string{"stocks_coefs.xlsx"}),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", false),
			Provider: getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL: getEnvString("CACHE_REDIS_URL", ""),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			FilePath:   getEnvString("LOG_FILE_PATH", "logs/app.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateProductionConfig validates the loaded configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var details []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("configuration validation failed: %s", strings.Join(details, "; "))
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Export.Enabled && len(cfg.Export.Workbooks) == 0 {
		return fmt.Errorf("configuration validation failed: EXPORT_WORKBOOKS must name at least one workbook when export is enabled")
	}

	return nil
}

// loadEnvFile loads key=value pairs from .env without overriding
// variables already present in the environment.
func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
