// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all service configuration.
type Config struct {
	HTTPPort string `validate:"required,numeric"`
	GRPCPort string `validate:"required,numeric"`

	StoreDriver   string `validate:"required,oneof=postgres memory"`
	DatabaseURL   string `validate:"required_if=StoreDriver postgres"`
	AutoMigrate   bool
	LogLevel      slog.Level
	Catalog       CatalogConfig
	ShutdownGrace time.Duration `validate:"gt=0"`

	// TitleServiceAddr points review title checks at a remote instance's
	// gRPC endpoint. Empty means the local store answers them.
	TitleServiceAddr string `validate:"omitempty,hostname_port"`
}

// CatalogConfig configures the external catalog client.
type CatalogConfig struct {
	BaseURL        string        `validate:"required,url"`
	APIKey         string        `validate:"required"`
	Timeout        time.Duration `validate:"gt=0"`
	MaxConcurrency int           `validate:"gte=1,lte=64"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:         getEnvOrDefault("HTTP_PORT", "8081"),
		GRPCPort:         getEnvOrDefault("GRPC_PORT", "9092"),
		StoreDriver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AutoMigrate:      getEnvBoolOrDefault("DB_AUTO_MIGRATE", false),
		ShutdownGrace:    getEnvDurationOrDefault("SHUTDOWN_GRACE", 10*time.Second),
		TitleServiceAddr: os.Getenv("TITLE_SERVICE_ADDR"),
		Catalog: CatalogConfig{
			BaseURL:        getEnvOrDefault("OMDB_BASE_URL", "https://www.omdbapi.com/"),
			APIKey:         os.Getenv("OMDB_API_KEY"),
			Timeout:        getEnvDurationOrDefault("CATALOG_TIMEOUT", 10*time.Second),
			MaxConcurrency: getEnvIntOrDefault("CATALOG_MAX_CONCURRENCY", 8),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
