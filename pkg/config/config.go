package config

import (
	"os"
	"time"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Port        string
	MetricsPort string

	DatabaseURL    string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	CacheBackend  string // "redis" or "memory"
	CacheReadTTL  time.Duration

	OTLPEndpoint string

	EnforceHTTPS bool
}

func Load() *Config {
	return &Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "user-service"),
		ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "3000"),
		MetricsPort:    getEnv("METRICS_PORT", "9091"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "infra/migrations"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		CacheBackend:   getEnv("CACHE_BACKEND", "redis"),
		CacheReadTTL:   time.Hour,
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		EnforceHTTPS:   getEnv("ENFORCE_HTTPS", "false") == "true",
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
