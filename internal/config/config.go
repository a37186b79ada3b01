package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Upload configuration
	Uploads UploadsConfig

	// Security configuration
	Security SecurityConfig

	// CORS configuration
	CORS CORSConfig

	// Logging configuration
	Logging LoggingConfig

	// SeedDemo creates a demo account and playlist on startup.
	SeedDemo bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects and locates the library backend.
type StorageConfig struct {
	Backend     string // file, bolt, sqlite, postgres
	DataDir     string
	DatabaseURL string
	SQLitePath  string
	BoltPath    string
}

// UploadsConfig holds media intake settings
type UploadsConfig struct {
	Dir      string
	MaxBytes int64
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	cfg.loadStorage()

	if err := cfg.loadUploads(); err != nil {
		return nil, fmt.Errorf("load uploads config: %w", err)
	}

	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	seed, err := strconv.ParseBool(getEnvOrDefault("SEED_DEMO", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}
	cfg.SeedDemo = seed

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadStorage() {
	c.Storage.Backend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", BackendFile))
	c.Storage.DataDir = getEnvOrDefault("DATA_DIR", "data")
	c.Storage.SQLitePath = getEnvOrDefault("SQLITE_PATH", filepath.Join(c.Storage.DataDir, "mixtape.db"))
	c.Storage.BoltPath = getEnvOrDefault("BOLT_PATH", filepath.Join(c.Storage.DataDir, "mixtape.bolt"))

	c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	if c.Storage.DatabaseURL == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		user := os.Getenv("DB_USER")
		name := os.Getenv("DB_NAME")
		if user != "" && name != "" {
			c.Storage.DatabaseURL = fmt.Sprintf(
				"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
				user,
				os.Getenv("DB_PASSWORD"),
				host,
				getEnvOrDefault("DB_PORT", "5432"),
				name,
				getEnvOrDefault("DB_SSLMODE", "disable"),
			)
		}
	}
}

func (c *Config) loadUploads() error {
	c.Uploads.Dir = getEnvOrDefault("UPLOADS_DIR", "uploads")

	// Accepts plain byte counts as well as sizes like "20MiB" or "50 MB".
	size, err := humanize.ParseBytes(getEnvOrDefault("UPLOAD_MAX_BYTES", "20MiB"))
	if err != nil {
		return fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}
	c.Uploads.MaxBytes = int64(size)
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	ttl, err := time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	c.Security.TokenTTL = ttl

	secure, err := strconv.ParseBool(getEnvOrDefault("COOKIE_SECURE", "false"))
	if err != nil {
		return fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	c.Security.SecureCookies = secure
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv != "" {
		var origins []string
		for _, origin := range strings.Split(originsEnv, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		c.CORS.AllowedOrigins = origins
	} else {
		// Default for local development
		c.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	c.Logging.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	switch c.Storage.Backend {
	case BackendFile, BackendBolt, BackendSQLite:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres backend (or DB_HOST, DB_USER, DB_NAME)")
		}
	default:
		errors = append(errors, "STORAGE_BACKEND must be one of: file, bolt, sqlite, postgres")
	}

	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		errors = append(errors, "TOKEN_TTL must be positive")
	}

	if c.Uploads.MaxBytes <= 0 {
		errors = append(errors, "UPLOAD_MAX_BYTES must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
