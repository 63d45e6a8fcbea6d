// Package config loads gallery configuration from a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendGCS    = "gcs"
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// URL modes for gallery images.
const (
	URLModePublic = "public"
	URLModeSigned = "signed"
)

// Config holds all runtime configuration for the gallery.
type Config struct {
	Port           string `validate:"required,numeric"`
	MaxUploadBytes int64  `validate:"gt=0"`
	LogLevel       string
	LogFormat      string `validate:"oneof=console json"`

	Storage Storage
}

// Storage describes the bucket layout and how to reach it.
type Storage struct {
	Backend         string `validate:"oneof=gcs minio s3 memory"`
	Bucket          string `validate:"required"`
	IncomingPrefix  string `validate:"required,nefield=ProcessedPrefix"`
	ProcessedPrefix string `validate:"required"`

	// PublicBaseURL prefixes bucket/prefix/filename in public image URLs.
	PublicBaseURL string        `validate:"required,url"`
	URLMode       string        `validate:"oneof=public signed"`
	SignedURLTTL  time.Duration `validate:"gt=0"`
	URLCacheTTL   time.Duration `validate:"gt=0,ltfield=SignedURLTTL"`

	// Endpoint is host:port for minio and a full URL for gcs and s3 (emulators, custom endpoints).
	Endpoint  string `validate:"required_if=Backend minio"`
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Load reads configuration from a .env file (if present) and environment variables.
// It reports whether a .env file was found so the caller can log it.
func Load() (*Config, bool, error) {
	foundDotEnv := godotenv.Load() == nil

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),

		Storage: Storage{
			Backend:         strings.ToLower(getEnv("STORAGE_BACKEND", BackendGCS)),
			Bucket:          getEnv("GCS_BUCKET", "script-resize"),
			IncomingPrefix:  getEnv("INCOMING_PREFIX", "img/before/"),
			ProcessedPrefix: getEnv("PROCESSED_PREFIX", "img/after/"),
			PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "https://storage.googleapis.com"),
			URLMode:         strings.ToLower(getEnv("URL_MODE", URLModePublic)),
			SignedURLTTL:    getEnvAsDuration("SIGNED_URL_TTL", time.Hour),
			URLCacheTTL:     getEnvAsDuration("SIGNED_URL_CACHE_TTL", 30*time.Minute),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:       getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:       getEnv("STORAGE_SECRET_KEY", ""),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:          getEnv("STORAGE_USE_SSL", "false") == "true",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, foundDotEnv, err
	}
	return cfg, foundDotEnv, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.URLMode == URLModeSigned && c.Storage.Backend != BackendGCS {
		return fmt.Errorf("invalid config: signed URLs require the %s backend, got %s", BackendGCS, c.Storage.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
